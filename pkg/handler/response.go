package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/model"
	"github.com/yumyai/cgcompare/pkg/orchestrator"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads one JSON object and refuses unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// errorStatus maps orchestrator errors onto HTTP status codes.
func errorStatus(err error) int {
	var (
		storeErr      *job.StoreError
		validationErr *job.ValidationError
		datasetErr    *job.UnknownDatasetError
		sequenceErr   *model.UnknownSequenceError
		profileErr    *model.ProfileNotFoundError
	)
	switch {
	case errors.Is(err, job.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, job.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &storeErr),
		errors.Is(err, orchestrator.ErrClosed),
		errors.Is(err, orchestrator.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.As(err, &validationErr),
		errors.As(err, &datasetErr),
		errors.As(err, &sequenceErr),
		errors.As(err, &profileErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("url", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}
