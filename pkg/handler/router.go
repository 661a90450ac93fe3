package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/middle"
)

func NewRouter(app *AppContext) chi.Router {
	r := chi.NewRouter()
	r.Use(middle.RequestIDMiddleware(logger.L()))
	r.Use(middle.LoggingMiddleware(logger.L()))

	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	r.Route("/comparative", func(r chi.Router) {
		r.Post("/nearest_neighbors", app.NearestNeighbors)
		r.Get("/nearest_neighbors/status", app.JobStatus(job.KindNearestNeighbors))
		r.Post("/cgmlst/tree", app.CgMLSTTree)
		r.Get("/cgmlst/status", app.JobStatus(job.KindCgMLSTTree))
		r.Post("/cgmlst/profile_diffs", app.ProfileDiffs)
		r.Post("/{kind}/store", app.StoreResult)
	})

	r.Get("/jobs/{job_id}", app.JobPage)

	if app.Bifrost != nil {
		r.Route("/bifrost", func(r chi.Router) {
			r.Get("/list_analyses", app.ListBifrostAnalyses)
			r.Post("/init", app.InitBifrost)
			r.Get("/status", app.BifrostStatus)
		})
	}

	// API routes
	r.Get("/api/v1/health", HealthCheck)
	r.Get("/api/v1/species", app.ListSpecies)
	r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())

	return r
}
