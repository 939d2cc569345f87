// Package history persists prediction records to durable per-workflow CSV
// logs and serves them back for read-only review. The logs are plain CSV so
// external dashboards can consume them without going through this process.
//
// Single predictions accumulate in an append-only log; bulk runs replace
// their workflow's log in full on every call. That asymmetry mirrors how the
// data is used (a growing audit trail vs. the latest batch) and must not be
// "fixed" into uniform appends.
//
// Writes within one process are serialized by the store's mutex. Writers in
// other processes are not coordinated; concurrent external writes to the
// same log can still interleave rows.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/predict"
)

// Workflow selects which history log an operation targets.
type Workflow string

const (
	WorkflowSingle       Workflow = "single"
	WorkflowBulkUploaded Workflow = "bulk-uploaded"
	WorkflowBulkInbuilt  Workflow = "bulk-inbuilt"
)

var workflowFiles = map[Workflow]string{
	WorkflowSingle:       "history.csv",
	WorkflowBulkUploaded: "uploaded_data_history.csv",
	WorkflowBulkInbuilt:  "inbuilt_data_history.csv",
}

// ParseWorkflow resolves a workflow name.
func ParseWorkflow(name string) (Workflow, error) {
	w := Workflow(name)
	if _, ok := workflowFiles[w]; !ok {
		return "", fmt.Errorf("unknown workflow %q", name)
	}
	return w, nil
}

// BulkRow is one row of a bulk prediction run, keyed by the dataset's own
// identifier column.
type BulkRow struct {
	ID          string
	Features    features.Record
	ModelUsed   string
	Label       string
	Probability float64
}

// Log is the parsed content of a history file. A log that does not exist yet
// reads back with a nil header and no rows.
type Log struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Empty reports whether the log holds no rows.
func (l *Log) Empty() bool { return len(l.Rows) == 0 }

// Store writes and reads the per-workflow history logs under one directory.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// AppendSingle appends one prediction to the single-prediction log, writing
// the header first if the file does not exist yet. Every call is an
// independent durable append.
func (s *Store) AppendSingle(p predict.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.fileFor(WorkflowSingle)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open single history: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		header := append([]string{"Prediction_Date", "Prediction_Time"}, features.Schema...)
		header = append(header, "Model_used", "income_above_limit", "Probability")
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	now := s.now()
	row := append([]string{now.Format("2006-01-02"), now.Format("15:04")}, p.Features.Values()...)
	row = append(row, p.ModelUsed, p.Label, formatProbability(p.Probability))
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush single history: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync single history: %w", err)
	}

	log.Debug().Str("model", p.ModelUsed).Str("label", p.Label).Msg("prediction appended to history")
	return nil
}

// WriteBulk replaces the target workflow's log with rows. Prior bulk history
// for that workflow is discarded, not merged.
func (s *Store) WriteBulk(rows []BulkRow, workflow Workflow) error {
	if workflow != WorkflowBulkUploaded && workflow != WorkflowBulkInbuilt {
		return fmt.Errorf("workflow %q does not accept bulk writes", workflow)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.fileFor(workflow), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open bulk history: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{features.IDColumn, "Prediction_Date"}, features.Schema...)
	header = append(header, "Model_used", "income_above_limit", "Probability")
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	date := s.now().Format("2006-01-02")
	for _, r := range rows {
		row := append([]string{r.ID, date}, r.Features.Values()...)
		row = append(row, r.ModelUsed, r.Label, formatProbability(r.Probability))
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush bulk history: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync bulk history: %w", err)
	}

	log.Info().Str("workflow", string(workflow)).Int("rows", len(rows)).Msg("bulk history written")
	return nil
}

// Read returns the parsed log for workflow. A log that has not been written
// yet reads back empty rather than failing.
func (s *Store) Read(workflow Workflow) (*Log, error) {
	if _, ok := workflowFiles[workflow]; !ok {
		return nil, fmt.Errorf("unknown workflow %q", workflow)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.fileFor(workflow))
	if os.IsNotExist(err) {
		return &Log{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return &Log{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history header: %w", err)
	}

	l := &Log{Header: header}
	for {
		row, err := r.Read()
		if err == io.EOF {
			return l, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read history row: %w", err)
		}
		l.Rows = append(l.Rows, row)
	}
}

func (s *Store) fileFor(workflow Workflow) string {
	return filepath.Join(s.dir, workflowFiles[workflow])
}

func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
