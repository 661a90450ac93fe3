// Handler for miscellaneous endpoints such as health check

package handler

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Health    string    `json:"health"`
	Timestamp time.Time `json:"timestamp"`
}

type SpeciesResponse struct {
	Species []string `json:"species"`
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Health:    "ok",
		Timestamp: time.Now(),
	}
	writeJSON(w, http.StatusOK, response)
}

// ListSpecies reports the species with a loaded dataset.
func (app *AppContext) ListSpecies(w http.ResponseWriter, r *http.Request) {
	species := app.Jobs.Species()
	if species == nil {
		species = []string{}
	}
	writeJSON(w, http.StatusOK, SpeciesResponse{Species: species})
}
