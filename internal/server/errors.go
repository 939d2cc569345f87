package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/dataset"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/uploads"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain errors onto HTTP statuses: invalid input is 422,
// unparseable input is 400, missing resources are 404, and an unavailable
// model artifact is 503.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.metrics.ErrorsTotal.Inc()

	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var valErr *features.ValidationError
	var mismatch *features.SchemaMismatchError
	var schemaErr *dataset.SchemaError
	var parseErr *dataset.ParseError
	var artifactErr *model.ArtifactError
	var notFound *uploads.NotFoundError

	switch {
	case errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
		resp.Fields = valErr.Fields()
	case errors.As(err, &mismatch):
		status = http.StatusUnprocessableEntity
		resp.Fields = mismatch.Missing
	case errors.As(err, &schemaErr):
		status = http.StatusUnprocessableEntity
		resp.Fields = schemaErr.Missing
	case errors.As(err, &parseErr):
		status = http.StatusBadRequest
	case errors.As(err, &artifactErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.Is(err, dataset.ErrEndOfData):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	s.writeJSON(w, status, resp)
}
