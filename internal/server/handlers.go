package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/dataset"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/history"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/uploads"
)

const maxUploadBytes = 64 << 20

type predictRequest struct {
	Model    string         `json:"model"`
	Features map[string]any `json:"features"`
}

type bulkPredictRequest struct {
	Model    string `json:"model"`
	Source   string `json:"source"`
	UploadID string `json:"upload_id"`
}

type uploadResponse struct {
	uploads.Info
	Preview dataset.Chunk `json:"preview"`
}

type bulkPredictResponse struct {
	Workflow  history.Workflow `json:"workflow"`
	ModelUsed string           `json:"model_used"`
	Rows      int              `json:"rows"`
	Labels    map[string]int   `json:"labels"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &dataset.ParseError{Format: "json", Err: err})
		return
	}

	rec, err := features.FromForm(req.Features)
	if err != nil {
		s.writeError(w, err)
		return
	}

	handle, enc, err := s.loadModel(r.Context(), req.Model)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.engine.Predict(r.Context(), handle, enc, rec)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.history.AppendSingle(p); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.HistoryAppends.Inc()
	s.metrics.PredictionScores.Observe(p.ProbabilityAbove)
	s.publish(historyEvent{Workflow: history.WorkflowSingle, Prediction: &p, Rows: 1, At: time.Now()})

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleBulkPredict(w http.ResponseWriter, r *http.Request) {
	var req bulkPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &dataset.ParseError{Format: "json", Err: err})
		return
	}

	chunk, workflow, err := s.resolveSource(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Reject schema problems before any model work happens.
	if missing := missingColumns(chunk.Header); len(missing) > 0 {
		s.writeError(w, &features.SchemaMismatchError{Missing: missing})
		return
	}

	recs := make([]features.Record, 0, chunk.Len())
	ids := make([]string, 0, chunk.Len())
	for i := 0; i < chunk.Len(); i++ {
		row := chunk.Row(i)
		rec, err := features.FromRow(row, chunk.Header)
		if err != nil {
			s.writeError(w, err)
			return
		}
		recs = append(recs, rec)
		ids = append(ids, row[features.IDColumn])
	}

	handle, enc, err := s.loadModel(r.Context(), req.Model)
	if err != nil {
		s.writeError(w, err)
		return
	}

	preds, err := s.engine.PredictBatch(r.Context(), handle, enc, recs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := make([]history.BulkRow, len(preds))
	labels := make(map[string]int)
	for i, p := range preds {
		rows[i] = history.BulkRow{
			ID:          ids[i],
			Features:    p.Features,
			ModelUsed:   p.ModelUsed,
			Label:       p.Label,
			Probability: p.Probability,
		}
		labels[p.Label]++
	}

	if err := s.history.WriteBulk(rows, workflow); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.HistoryBulkWrites.Inc()
	s.metrics.BulkRows.Observe(float64(len(rows)))
	s.publish(historyEvent{Workflow: workflow, Rows: len(rows), At: time.Now()})

	s.writeJSON(w, http.StatusOK, bulkPredictResponse{
		Workflow:  workflow,
		ModelUsed: handle.ID(),
		Rows:      len(rows),
		Labels:    labels,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, &dataset.ParseError{Format: "multipart", Err: err})
		return
	}
	defer file.Close()

	format, err := dataset.ParseFormat(header.Filename)
	if err != nil {
		s.writeError(w, &dataset.ParseError{Format: "upload", Err: err})
		return
	}

	chunk, err := dataset.ReadAll(file, format)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cleaned, err := dataset.Clean(chunk)
	if err != nil {
		s.writeError(w, err)
		return
	}

	u := uploads.Upload{
		ID:         newUploadID(),
		Name:       header.Filename,
		Format:     format,
		Header:     cleaned.Header,
		Rows:       cleaned.Records,
		UploadedAt: time.Now(),
	}
	if err := s.uploads.Save(u); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.DatasetUploads.Inc()
	log.Info().Str("upload", u.ID).Str("name", u.Name).Int("rows", len(u.Rows)).Msg("dataset uploaded")

	previewLen := len(u.Rows)
	if previewLen > s.settings.ChunkSize {
		previewLen = s.settings.ChunkSize
	}
	s.writeJSON(w, http.StatusCreated, uploadResponse{
		Info: uploads.Info{
			ID:         u.ID,
			Name:       u.Name,
			Format:     u.Format,
			RowCount:   len(u.Rows),
			UploadedAt: u.UploadedAt,
		},
		Preview: dataset.Chunk{Header: u.Header, Records: u.Rows[:previewLen]},
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	infos, err := s.uploads.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if infos == nil {
		infos = []uploads.Info{}
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDatasetPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil || page < 0 {
		s.writeError(w, &dataset.ParseError{Format: "page", Err: errors.New("page must be a non-negative integer")})
		return
	}

	u, err := s.uploads.Get(vars["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	start := page * s.settings.ChunkSize
	if start >= len(u.Rows) {
		s.writeError(w, dataset.ErrEndOfData)
		return
	}
	end := start + s.settings.ChunkSize
	if end > len(u.Rows) {
		end = len(u.Rows)
	}

	s.metrics.ChunkReads.Inc()
	s.writeJSON(w, http.StatusOK, dataset.Chunk{
		Header:  u.Header,
		Records: u.Rows[start:end],
		Page:    page,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	workflow, err := history.ParseWorkflow(mux.Vars(r)["workflow"])
	if err != nil {
		s.metrics.ErrorsTotal.Inc()
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	l, err := s.history.Read(workflow)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, l)
}

// resolveSource materializes the rows a bulk run will score.
func (s *Server) resolveSource(req bulkPredictRequest) (*dataset.Chunk, history.Workflow, error) {
	switch req.Source {
	case "upload":
		u, err := s.uploads.Get(req.UploadID)
		if err != nil {
			return nil, "", err
		}
		return &dataset.Chunk{Header: u.Header, Records: u.Rows}, history.WorkflowBulkUploaded, nil

	case "inbuilt":
		path := s.settings.InbuiltDataset
		if path == "" {
			return nil, "", &uploads.NotFoundError{ID: "inbuilt dataset"}
		}
		format, err := dataset.ParseFormat(path)
		if err != nil {
			return nil, "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", &uploads.NotFoundError{ID: "inbuilt dataset"}
		}
		defer f.Close()

		chunk, err := dataset.ReadAll(f, format)
		if err != nil {
			return nil, "", err
		}
		cleaned, err := dataset.Clean(chunk)
		if err != nil {
			return nil, "", err
		}
		return cleaned, history.WorkflowBulkInbuilt, nil

	default:
		return nil, "", &dataset.ParseError{Format: "source", Err: errors.New(`source must be "upload" or "inbuilt"`)}
	}
}

// loadModel resolves the requested model (or the configured default) together
// with the label encoder.
func (s *Server) loadModel(ctx context.Context, modelID string) (*model.Handle, *model.LabelEncoder, error) {
	if modelID == "" {
		modelID = s.settings.DefaultModel
	}

	handle, err := s.registry.Load(ctx, modelID)
	if err != nil {
		s.metrics.ModelLoadFailures.Inc()
		return nil, nil, err
	}
	enc, err := s.registry.LoadEncoder(ctx)
	if err != nil {
		s.metrics.ModelLoadFailures.Inc()
		return nil, nil, err
	}
	s.metrics.ModelLoads.Inc()
	return handle, enc, nil
}

// missingColumns reports the schema columns (and the ID column) absent from a
// bulk dataset header.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	if !present[features.IDColumn] {
		missing = append(missing, features.IDColumn)
	}
	for _, col := range features.Schema {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

func newUploadID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}
