package catalog

import (
	"encoding/json"
	"io"
	"os"
)

// ExportJSON writes records as an indented JSON array.
func ExportJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func ExportJSONFile(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportJSON(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
