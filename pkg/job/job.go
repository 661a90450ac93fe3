// Package job defines the comparative analysis job record, its lifecycle and
// the storage contract the orchestrator writes through.
package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindNearestNeighbors Kind = "nearest_neighbors"
	KindCgMLSTTree       Kind = "cgmlst_tree"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNearestNeighbors, KindCgMLSTTree:
		return Kind(s), nil
	case "cgmlst", "tree":
		return KindCgMLSTTree, nil
	case "nn", "neighbors":
		return KindNearestNeighbors, nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

type Status string

const (
	StatusInitializing Status = "Initializing"
	StatusRejected     Status = "Rejected"
	StatusAccepted     Status = "Accepted"
	StatusQueued       Status = "Queued"
	StatusRunning      Status = "Running"
	StatusSucceeded    Status = "Succeeded"
	StatusFailed       Status = "Failed"
	StatusStored       Status = "Stored"
)

var transitions = map[Status][]Status{
	StatusInitializing: {StatusAccepted, StatusRejected},
	// Accepted and Queued may fail directly when the worker pool shuts down
	// before the job got a worker.
	StatusAccepted:  {StatusQueued, StatusFailed},
	StatusQueued:    {StatusRunning, StatusFailed},
	StatusRunning:   {StatusSucceeded, StatusFailed},
	StatusSucceeded: {StatusStored},
}

// CanTransition reports whether s -> to is an edge of the job state machine.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Finished is true once the computation is over, successfully or not.
func (s Status) Finished() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusStored:
		return true
	}
	return false
}

// Result is either a list of sequence ids (nearest neighbours) or a Newick tree.
// It encodes as a JSON array or a JSON string accordingly.
type Result struct {
	Sequences []string
	Newick    string
}

func NeighborsResult(ids []string) *Result {
	if ids == nil {
		ids = []string{}
	}
	return &Result{Sequences: ids}
}

func TreeResult(newick string) *Result {
	return &Result{Newick: newick}
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Sequences != nil {
		return json.Marshal(r.Sequences)
	}
	return json.Marshal(r.Newick)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		r.Newick = ""
		return json.Unmarshal(data, &r.Sequences)
	}
	r.Sequences = nil
	return json.Unmarshal(data, &r.Newick)
}

type Job struct {
	ID            string     `json:"job_id"`
	Kind          Kind       `json:"kind"`
	Species       string     `json:"species"`
	Sequences     []string   `json:"sequences,omitempty"`
	AlleleHashIDs []string   `json:"allele_hash_ids,omitempty"`
	Cutoff        *float64   `json:"cutoff,omitempty"`
	Method        string     `json:"method,omitempty"`
	Status        Status     `json:"status"`
	Result        *Result    `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Seconds       float64    `json:"seconds,omitempty"`
}

// Clone returns a deep copy so a view can be mutated without touching a stored record.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Sequences = append([]string(nil), j.Sequences...)
	c.AlleleHashIDs = append([]string(nil), j.AlleleHashIDs...)
	if j.Cutoff != nil {
		v := *j.Cutoff
		c.Cutoff = &v
	}
	if j.Result != nil {
		r := *j.Result
		if j.Result.Sequences != nil {
			r.Sequences = append([]string{}, j.Result.Sequences...)
		}
		c.Result = &r
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// Validate checks the record invariants: a result only on success, an error
// only on failure.
func (j *Job) Validate() error {
	hasResult := j.Result != nil
	wantResult := j.Status == StatusSucceeded || j.Status == StatusStored
	if hasResult != wantResult {
		return fmt.Errorf("job %s: result present=%v with status %s", j.ID, hasResult, j.Status)
	}
	hasError := j.Error != ""
	wantError := j.Status == StatusFailed || j.Status == StatusRejected
	if hasError != wantError {
		return fmt.Errorf("job %s: error present=%v with status %s", j.ID, hasError, j.Status)
	}
	return nil
}

// Transition moves the job to the next status and stamps the timestamps the
// new status implies.
func (j *Job) Transition(to Status, now time.Time) error {
	if !j.Status.CanTransition(to) {
		return &TransitionError{From: j.Status, To: to}
	}
	j.Status = to
	switch to {
	case StatusRunning:
		j.StartedAt = &now
	case StatusSucceeded, StatusFailed:
		j.FinishedAt = &now
		j.Seconds = now.Sub(j.CreatedAt).Seconds()
	}
	return nil
}

// Succeed attaches the result and moves Running -> Succeeded.
func (j *Job) Succeed(result *Result, now time.Time) error {
	if err := j.Transition(StatusSucceeded, now); err != nil {
		return err
	}
	j.Result = result
	j.Error = ""
	return nil
}

// Fail records msg and moves the job to Failed.
func (j *Job) Fail(msg string, now time.Time) error {
	if err := j.Transition(StatusFailed, now); err != nil {
		return err
	}
	if msg == "" {
		msg = "unknown error"
	}
	j.Result = nil
	j.Error = msg
	return nil
}

// Encode serialises the whole record.
func Encode(j *Job) ([]byte, error) {
	return json.Marshal(j)
}

// Decode parses a stored record and rejects one that breaks the record invariants.
func Decode(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}
