// Package storage reads and writes the persisted records of a run:
// parameter records, trajectories, summaries, and the directory layout
// that groups them by spring constant and mode.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/polychain/internal/dynamo"
)

const (
	paramRoot     = "PARAMETROS"
	resultRoot    = "Resultados_simulacion"
	summarySubdir = "RES_IMPORTANTES"
	TableName     = "grafica.txt"
	runPrefix     = "V_"
	runExt        = ".txt"
	compressedExt = ".gz"
	scalingSubdir = "ESCALA"
	pullingSubdir = "FIJOS"
)

// Store lays out runs under baseDir:
//
//	PARAMETROS/<K>/<ESCALA|FIJOS>/V_k.txt
//	Resultados_simulacion/<K>/<ESCALA|FIJOS>/V_k.txt[.gz]
//	Resultados_simulacion/<K>/<ESCALA|FIJOS>/RES_IMPORTANTES/V_k.txt
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// RunFiles names every record of one run.
type RunFiles struct {
	Index      int
	Params     string
	Trajectory string
	Summary    string
}

func modeDir(mode dynamo.Mode) string {
	if mode == dynamo.ModePulling {
		return pullingSubdir
	}
	return scalingSubdir
}

func kDir(k float64) string { return strconv.FormatFloat(k, 'f', 1, 64) }

func (s *Store) ParamDir(k float64, mode dynamo.Mode) string {
	return filepath.Join(s.baseDir, paramRoot, kDir(k), modeDir(mode))
}

func (s *Store) TrajectoryDir(k float64, mode dynamo.Mode) string {
	return filepath.Join(s.baseDir, resultRoot, kDir(k), modeDir(mode))
}

func (s *Store) SummaryDir(k float64, mode dynamo.Mode) string {
	return filepath.Join(s.TrajectoryDir(k, mode), summarySubdir)
}

func (s *Store) TablePath(k float64, mode dynamo.Mode) string {
	return filepath.Join(s.SummaryDir(k, mode), TableName)
}

// Init creates the directories of one (K, mode) configuration.
func (s *Store) Init(k float64, mode dynamo.Mode) error {
	for _, dir := range []string{s.ParamDir(k, mode), s.TrajectoryDir(k, mode), s.SummaryDir(k, mode)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) files(k float64, mode dynamo.Mode, idx int, compress bool) RunFiles {
	name := fmt.Sprintf("%s%d%s", runPrefix, idx, runExt)
	traj := filepath.Join(s.TrajectoryDir(k, mode), name)
	if compress {
		traj += compressedExt
	}
	return RunFiles{
		Index:      idx,
		Params:     filepath.Join(s.ParamDir(k, mode), name),
		Trajectory: traj,
		Summary:    filepath.Join(s.SummaryDir(k, mode), name),
	}
}

// NextRun reserves the first index k for which no V_k record exists yet.
// The parameter file is created empty so concurrent callers never share an
// index.
func (s *Store) NextRun(k float64, mode dynamo.Mode, compress bool) (RunFiles, error) {
	if err := s.Init(k, mode); err != nil {
		return RunFiles{}, err
	}
	for idx := 0; ; idx++ {
		rf := s.files(k, mode, idx, compress)
		if exists(rf.Trajectory) || exists(strings.TrimSuffix(rf.Trajectory, compressedExt)) ||
			exists(rf.Trajectory+compressedExt) {
			continue
		}
		f, err := os.OpenFile(rf.Params, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return RunFiles{}, err
		}
		if err := f.Close(); err != nil {
			return RunFiles{}, err
		}
		return rf, nil
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// runIndex extracts k from "V_k.txt" or "V_k.txt.gz".
func runIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, runPrefix) {
		return 0, false
	}
	base := strings.TrimSuffix(name, compressedExt)
	if !strings.HasSuffix(base, runExt) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, runPrefix), runExt))
	if err != nil {
		return 0, false
	}
	return idx, true
}

func (s *Store) scan(dir string) ([]int, map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	names := make(map[int]string)
	var idxs []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		idx, ok := runIndex(e.Name())
		if !ok {
			continue
		}
		if _, dup := names[idx]; !dup {
			idxs = append(idxs, idx)
		}
		names[idx] = e.Name()
	}
	sort.Ints(idxs)
	return idxs, names, nil
}

// Runs lists the trajectories of one configuration in run order.
func (s *Store) Runs(k float64, mode dynamo.Mode) ([]RunFiles, error) {
	idxs, names, err := s.scan(s.TrajectoryDir(k, mode))
	if err != nil {
		return nil, err
	}
	runs := make([]RunFiles, 0, len(idxs))
	for _, idx := range idxs {
		rf := s.files(k, mode, idx, Compressed(names[idx]))
		runs = append(runs, rf)
	}
	return runs, nil
}

// Summaries lists the summary records of one configuration in run order.
func (s *Store) Summaries(k float64, mode dynamo.Mode) ([]string, error) {
	dir := s.SummaryDir(k, mode)
	idxs, names, err := s.scan(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		paths = append(paths, filepath.Join(dir, names[idx]))
	}
	return paths, nil
}
