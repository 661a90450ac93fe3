package request

import (
	"github.com/yumyai/cgcompare/pkg/orchestrator"
)

// Request bodies of the comparative endpoints.
type NearestNeighborsRequest struct {
	Species   string   `json:"species"`
	Sequences []string `json:"sequences"`
	Cutoff    *float64 `json:"cutoff"`
}

func (r NearestNeighborsRequest) Orchestrator() orchestrator.NeighborsRequest {
	return orchestrator.NeighborsRequest{Species: r.Species, Sequences: r.Sequences, Cutoff: r.Cutoff}
}

// Either sequences or allele_hash_ids, not both.
type TreeRequest struct {
	Species       string   `json:"species"`
	Sequences     []string `json:"sequences"`
	AlleleHashIDs []string `json:"allele_hash_ids"`
	Method        string   `json:"method"`
}

func (r TreeRequest) Orchestrator() orchestrator.TreeRequest {
	return orchestrator.TreeRequest{
		Species:       r.Species,
		Sequences:     r.Sequences,
		AlleleHashIDs: r.AlleleHashIDs,
		Method:        r.Method,
	}
}

type ProfileDiffRequest struct {
	Species   string   `json:"species"`
	Sequences []string `json:"sequences"`
}

type BifrostInitRequest struct {
	Sequences []string `json:"sequences"`
	Analyses  []string `json:"analyses"`
}
