package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/handler/request"
	"github.com/yumyai/cgcompare/pkg/job"
)

// writeSubmitted answers a submission: 202 for accepted jobs, 422 with the
// job body for rejected ones.
func writeSubmitted(w http.ResponseWriter, j *job.Job) {
	if j.Status == job.StatusRejected {
		writeJSON(w, http.StatusUnprocessableEntity, j)
		return
	}
	w.Header().Set("Location", "/jobs/"+j.ID)
	writeJSON(w, http.StatusAccepted, j)
}

func (app *AppContext) NearestNeighbors(w http.ResponseWriter, r *http.Request) {
	var req request.NearestNeighborsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("Nearest neighbors request",
		zap.String("species", req.Species), zap.Int("sequences", len(req.Sequences)))

	j, err := app.Jobs.SubmitNearestNeighbors(r.Context(), req.Orchestrator())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSubmitted(w, j)
}

func (app *AppContext) CgMLSTTree(w http.ResponseWriter, r *http.Request) {
	var req request.TreeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("Tree request",
		zap.String("species", req.Species),
		zap.Int("sequences", len(req.Sequences)),
		zap.Int("allele_hash_ids", len(req.AlleleHashIDs)),
		zap.String("method", req.Method))

	j, err := app.Jobs.SubmitTree(r.Context(), req.Orchestrator())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSubmitted(w, j)
}

// JobStatus returns a handler for GET .../status?job_id= restricted to one job kind.
func (app *AppContext) JobStatus(kind job.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("job_id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "Missing job_id")
			return
		}

		j, err := app.Jobs.Status(r.Context(), kind, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, j)
	}
}

// StoreResult handles POST /comparative/{kind}/store?job_id=.
func (app *AppContext) StoreResult(w http.ResponseWriter, r *http.Request) {
	kind, err := job.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	id := r.URL.Query().Get("job_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job_id")
		return
	}

	j, err := app.Jobs.Store(r.Context(), kind, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (app *AppContext) ProfileDiffs(w http.ResponseWriter, r *http.Request) {
	var req request.ProfileDiffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := app.Jobs.ProfileDiffs(req.Species, req.Sequences)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
