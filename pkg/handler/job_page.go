package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/render"
)

// JobPage shows any comparative job as HTML and reloads until it finishes.
func (app *AppContext) JobPage(w http.ResponseWriter, r *http.Request) {
	j, err := app.Jobs.Status(r.Context(), "", chi.URLParam(r, "job_id"))
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		logger.Error(err.Error())
		http.Error(w, "Failed to look up job", errorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.RenderJobPage(w, render.NewJobPageData(j, app.RefreshSeconds)); err != nil {
		logger.Error(err.Error())
		http.Error(w, "Failed to render job page", http.StatusInternalServerError)
	}
}
