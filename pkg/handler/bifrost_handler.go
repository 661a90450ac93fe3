package handler

import (
	"net/http"

	"github.com/yumyai/cgcompare/pkg/handler/request"
	"github.com/yumyai/cgcompare/pkg/job"
)

func (app *AppContext) ListBifrostAnalyses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Bifrost.ListAnalyses())
}

func (app *AppContext) InitBifrost(w http.ResponseWriter, r *http.Request) {
	var req request.BifrostInitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	j, err := app.Bifrost.Init(r.Context(), req.Sequences, req.Analyses)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	status := http.StatusOK
	if j.Status == job.StatusRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, j)
}

func (app *AppContext) BifrostStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("job_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job_id")
		return
	}

	j, err := app.Bifrost.Status(r.Context(), id)
	if err != nil {
		if status := errorStatus(err); status == http.StatusUnprocessableEntity {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}
