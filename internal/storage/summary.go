package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Summary record keys.
const (
	KeyMeanKinetic   = "PROMEDIO_ENERGIA_CINETICA"
	KeyErrKinetic    = "ERROR_ENERGIA_CINETICA"
	KeyMeanPotential = "PROMEDIO_ENERGIA_POTENCIAL"
	KeyErrPotential  = "ERROR_ENERGIA_POTENCIAL"
	KeyMeanEndToEnd  = "PROMEDIO_R_EE"
	KeyErrEndToEnd   = "ERROR_R_EE"
	KeyMeanGyration  = "PROMEDIO_R_G"
	KeyErrGyration   = "ERROR_R_G"
	KeyBeads         = "N_particulas"
	KeyPull          = "F_cte"
)

// WriteSummary writes the reduced statistics of one trajectory.
func WriteSummary(path string, s *dynamo.Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "%s %.6f\n", KeyMeanKinetic, s.Kinetic.Mean)
	fmt.Fprintf(w, "%s %.6f\n", KeyErrKinetic, s.Kinetic.StdErr)
	fmt.Fprintf(w, "%s %.6f\n", KeyMeanPotential, s.Potential.Mean)
	fmt.Fprintf(w, "%s %.6f\n", KeyErrPotential, s.Potential.StdErr)
	fmt.Fprintf(w, "%s %.6f\n", KeyMeanEndToEnd, s.EndToEnd.Mean)
	fmt.Fprintf(w, "%s %.6f\n", KeyErrEndToEnd, s.EndToEnd.StdErr)
	fmt.Fprintf(w, "%s %.6f\n", KeyMeanGyration, s.Gyration.Mean)
	fmt.Fprintf(w, "%s %.6f\n", KeyErrGyration, s.Gyration.StdErr)
	fmt.Fprintf(w, "%s %d\n", KeyBeads, s.N)
	if s.HasPull {
		fmt.Fprintf(w, "%s %.6f\n", KeyPull, s.PullForce)
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadSummary parses a summary record. Every estimate and N_particulas are
// required; F_cte is optional.
func ReadSummary(path string) (*dynamo.Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s := &dynamo.Summary{}
	floats := map[string]*float64{
		KeyMeanKinetic:   &s.Kinetic.Mean,
		KeyErrKinetic:    &s.Kinetic.StdErr,
		KeyMeanPotential: &s.Potential.Mean,
		KeyErrPotential:  &s.Potential.StdErr,
		KeyMeanEndToEnd:  &s.EndToEnd.Mean,
		KeyErrEndToEnd:   &s.EndToEnd.StdErr,
		KeyMeanGyration:  &s.Gyration.Mean,
		KeyErrGyration:   &s.Gyration.StdErr,
		KeyPull:          &s.PullForce,
	}
	seen := map[string]bool{}

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		key, val := fields[0], fields[1]

		if key == KeyBeads {
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", path, key, err)
			}
			s.N = n
			seen[key] = true
			continue
		}
		dst, ok := floats[key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, key, err)
		}
		*dst = v
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, key := range []string{KeyMeanKinetic, KeyErrKinetic, KeyMeanPotential, KeyErrPotential,
		KeyMeanEndToEnd, KeyErrEndToEnd, KeyMeanGyration, KeyErrGyration, KeyBeads} {
		if !seen[key] {
			return nil, fmt.Errorf("%s: missing %s", path, key)
		}
	}
	s.HasPull = seen[KeyPull]
	return s, nil
}
