package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/optsim/internal/analysis"
	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/export"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/pricing"
	"github.com/san-kum/optsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	pathsFile    = "paths.csv"
)

// ErrRunNotFound indicates no stored run has the requested id.
var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string           `json:"id"`
	Timestamp    time.Time        `json:"timestamp"`
	Seed         int64            `json:"seed"`
	Params       params.Set       `json:"params"`
	MonteCarlo   pricing.Estimate `json:"monteCarlo"`
	BlackScholes pricing.Estimate `json:"blackScholes"`
	Errors       analysis.Report  `json:"errors"`
	TotalPaths   int              `json:"totalPaths"`
	SamplePaths  int              `json:"samplePaths"`
	ElapsedMs    float64          `json:"elapsedMs"`
}

// Save writes the run metadata and its sample paths, one column per path.
func (s *Store) Save(result *experiment.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:           runID,
		Timestamp:    time.Now(),
		Seed:         result.Seed,
		Params:       result.Params,
		MonteCarlo:   result.MonteCarlo,
		BlackScholes: result.BlackScholes,
		Errors:       result.Errors,
		TotalPaths:   result.TotalPaths,
		SamplePaths:  len(result.Samples),
		ElapsedMs:    float64(result.Elapsed.Microseconds()) / 1000,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writePaths(filepath.Join(runDir, pathsFile), result.Samples, result.Params.Maturity); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePaths(path string, paths []sim.Path, maturity float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return export.WriteCSV(f, paths, maturity)
}

// List returns every stored run, newest first. Unreadable entries are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadPaths reads back the sample paths and their time grid.
func (s *Store) LoadPaths(runID string) ([]sim.Path, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, pathsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 || len(records[0]) < 2 {
		return []sim.Path{}, []float64{}, nil
	}

	numPaths := len(records[0]) - 1
	steps := len(records) - 1
	paths := make([]sim.Path, numPaths)
	for i := range paths {
		paths[i] = make(sim.Path, steps)
	}
	times := make([]float64, steps)

	for row := 1; row < len(records); row++ {
		record := records[row]
		if len(record) != numPaths+1 {
			return nil, nil, fmt.Errorf("storage: %s row %d: expected %d fields, got %d", pathsFile, row, numPaths+1, len(record))
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s row %d: %w", pathsFile, row, err)
		}
		times[row-1] = t

		for j := 1; j < len(record); j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s row %d: %w", pathsFile, row, err)
			}
			paths[j-1][row-1] = v
		}
	}

	return paths, times, nil
}

// LoadResult rebuilds a result bundle from a stored run.
func (s *Store) LoadResult(runID string) (*RunMetadata, *experiment.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	paths, _, err := s.LoadPaths(runID)
	if err != nil {
		return nil, nil, err
	}

	return meta, &experiment.Result{
		Params:       meta.Params,
		Seed:         meta.Seed,
		MonteCarlo:   meta.MonteCarlo,
		BlackScholes: meta.BlackScholes,
		Errors:       meta.Errors,
		Samples:      paths,
		TotalPaths:   meta.TotalPaths,
		Elapsed:      time.Duration(meta.ElapsedMs * float64(time.Millisecond)),
	}, nil
}
