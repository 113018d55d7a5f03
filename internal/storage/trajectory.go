package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/san-kum/polychain/internal/dynamo"
)

// Compressed reports whether path names a gzip trajectory.
func Compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// TrajectoryWriter appends frames to a trajectory file as they are sampled.
type TrajectoryWriter struct {
	path string
	file *os.File
	gz   *gzip.Writer
	w    *bufio.Writer
	buf  []byte
}

// CreateTrajectory creates path and writes the header line
// "<dt> <steps>\t<paramName>". A ".gz" suffix selects gzip output.
func CreateTrajectory(path string, dt float64, steps int, paramName string) (*TrajectoryWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	tw := &TrajectoryWriter{path: path, file: file}
	var dst io.Writer = file
	if Compressed(path) {
		tw.gz = gzip.NewWriter(file)
		dst = tw.gz
	}
	tw.w = bufio.NewWriterSize(dst, 64*1024)

	if _, err := fmt.Fprintf(tw.w, "%.6f %d\t%s\n", dt, steps, paramName); err != nil {
		tw.Abort()
		return nil, err
	}
	return tw, nil
}

// Path returns the destination of the writer.
func (tw *TrajectoryWriter) Path() string { return tw.path }

// WriteFrame appends one line: time, 3N positions, 3N velocities and the
// five observables, all with six decimals.
func (tw *TrajectoryWriter) WriteFrame(f *dynamo.Frame) error {
	b := tw.buf[:0]
	b = strconv.AppendFloat(b, f.Time, 'f', 6, 64)
	for _, v := range f.X {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, v, 'f', 6, 64)
	}
	for _, v := range f.V {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, v, 'f', 6, 64)
	}
	for _, v := range [...]float64{f.Kinetic, f.Potential, f.Total, f.Gyration, f.EndToEnd} {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, v, 'f', 6, 64)
	}
	b = append(b, '\n')
	tw.buf = b

	_, err := tw.w.Write(b)
	return err
}

// Close flushes every layer and closes the file.
func (tw *TrajectoryWriter) Close() error {
	err := tw.w.Flush()
	if tw.gz != nil {
		err = errors.Join(err, tw.gz.Close())
	}
	return errors.Join(err, tw.file.Close())
}

// Abort closes the writer and removes the partial file.
func (tw *TrajectoryWriter) Abort() {
	_ = tw.file.Close()
	_ = os.Remove(tw.path)
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var err error
	for _, c := range r.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

// OpenTrajectory opens a trajectory for reading, decompressing ".gz" files.
func OpenTrajectory(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !Compressed(path) {
		return file, nil
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{gz, file}}, nil
}

// Header is the first line of a trajectory.
type Header struct {
	Dt        float64
	Steps     int
	ParamName string
}

func ParseHeader(line string) (Header, error) {
	var h Header
	head, name, _ := strings.Cut(strings.TrimRight(line, "\r\n"), "\t")
	fields := strings.Fields(head)
	if len(fields) != 2 {
		return h, fmt.Errorf("%w: header %q", dynamo.ErrMalformedLine, line)
	}
	dt, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return h, fmt.Errorf("%w: header dt: %v", dynamo.ErrMalformedLine, err)
	}
	steps, err := strconv.Atoi(fields[1])
	if err != nil {
		return h, fmt.Errorf("%w: header steps: %v", dynamo.ErrMalformedLine, err)
	}
	return Header{Dt: dt, Steps: steps, ParamName: name}, nil
}

// ParseObservables reads the observable columns of a frame line of an
// n-bead chain. They follow the time column, 3n positions and 3n velocities;
// a line with any other column count belongs to a different chain length.
func ParseObservables(line string, n int) (dynamo.Observables, error) {
	var obs dynamo.Observables
	fields := strings.Fields(line)
	skip := 1 + 6*n
	if len(fields) != skip+5 {
		return obs, fmt.Errorf("%w: %d columns, expected %d", dynamo.ErrMalformedLine, len(fields), skip+5)
	}

	dst := [...]*float64{&obs.Kinetic, &obs.Potential, &obs.Total, &obs.Gyration, &obs.EndToEnd}
	for i, p := range dst {
		v, err := strconv.ParseFloat(fields[skip+i], 64)
		if err != nil {
			return obs, fmt.Errorf("%w: column %d: %v", dynamo.ErrMalformedLine, skip+i, err)
		}
		*p = v
	}
	return obs, nil
}

// ParseFrame reads a complete frame line of an n-bead chain.
func ParseFrame(line string, n int) (*dynamo.Frame, error) {
	fields := strings.Fields(line)
	if len(fields) != 1+6*n+5 {
		return nil, fmt.Errorf("%w: %d columns, expected %d", dynamo.ErrMalformedLine, len(fields), 1+6*n+5)
	}

	vals := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %v", dynamo.ErrMalformedLine, i, err)
		}
		vals[i] = v
	}

	obs := vals[1+6*n:]
	return &dynamo.Frame{
		Time: vals[0],
		X:    dynamo.State(vals[1 : 1+3*n]).Clone(),
		V:    dynamo.State(vals[1+3*n : 1+6*n]).Clone(),
		Observables: dynamo.Observables{
			Kinetic:   obs[0],
			Potential: obs[1],
			Total:     obs[2],
			Gyration:  obs[3],
			EndToEnd:  obs[4],
		},
	}, nil
}

// NewLineScanner returns a scanner sized for long frame lines.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return sc
}

// ReadFrames loads every frame of a trajectory. It is meant for small
// files; the reducer streams instead.
func ReadFrames(r io.Reader, n int) (Header, []*dynamo.Frame, error) {
	sc := NewLineScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return Header{}, nil, err
		}
		return Header{}, nil, fmt.Errorf("%w: empty trajectory", dynamo.ErrMalformedLine)
	}
	h, err := ParseHeader(sc.Text())
	if err != nil {
		return h, nil, err
	}

	var frames []*dynamo.Frame
	for sc.Scan() {
		f, err := ParseFrame(sc.Text(), n)
		if err != nil {
			return h, frames, err
		}
		frames = append(frames, f)
	}
	return h, frames, sc.Err()
}
