package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/util"
	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/dataset"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/model"
)

type NeighborsRequest struct {
	Species   string
	Sequences []string
	Cutoff    *float64
}

// TreeRequest selects profiles either by sequence id or by allele hash id, never both.
type TreeRequest struct {
	Species       string
	Sequences     []string
	AlleleHashIDs []string
	Method        string
}

// SubmitNearestNeighbors validates the request and, when it is acceptable,
// schedules the neighbour search. A rejected request comes back as a Rejected
// job with a nil error; the error is reserved for store and shutdown faults.
func (o *Orchestrator) SubmitNearestNeighbors(ctx context.Context, req NeighborsRequest) (*job.Job, error) {
	j := &job.Job{
		Kind:      job.KindNearestNeighbors,
		Species:   util.NormalizeSpecies(req.Species),
		Sequences: append([]string(nil), req.Sequences...),
		Cutoff:    req.Cutoff,
		Status:    job.StatusInitializing,
		CreatedAt: o.now(),
	}

	ds, err := o.validateNeighbors(req)
	if err != nil {
		return o.reject(j, err)
	}

	ids, cutoff := append([]string(nil), req.Sequences...), *req.Cutoff
	return o.accept(ctx, j, func(ctx context.Context) (*job.Result, error) {
		neighbors, err := model.FindNeighbors(ds.Matrix, ids, cutoff)
		if err != nil {
			return nil, err
		}
		return job.NeighborsResult(neighbors), nil
	})
}

// SubmitTree validates the request and schedules a tree build over the
// selected allele profiles.
func (o *Orchestrator) SubmitTree(ctx context.Context, req TreeRequest) (*job.Job, error) {
	if req.Method == "" {
		req.Method = o.defaultMethod
	}
	j := &job.Job{
		Kind:          job.KindCgMLSTTree,
		Species:       util.NormalizeSpecies(req.Species),
		Sequences:     append([]string(nil), req.Sequences...),
		AlleleHashIDs: append([]string(nil), req.AlleleHashIDs...),
		Method:        req.Method,
		Status:        job.StatusInitializing,
		CreatedAt:     o.now(),
	}

	table, ids, err := o.validateTree(req)
	if err != nil {
		return o.reject(j, err)
	}

	method := req.Method
	return o.accept(ctx, j, func(ctx context.Context) (*job.Result, error) {
		profiles, err := model.LookupProfiles(table, ids)
		if err != nil {
			return nil, err
		}
		newick, err := o.builder.BuildTree(ctx, profiles, method)
		if err != nil {
			return nil, err
		}
		return job.TreeResult(newick), nil
	})
}

func (o *Orchestrator) reject(j *job.Job, reason error) (*job.Job, error) {
	if err := j.Transition(job.StatusRejected, o.now()); err != nil {
		return nil, err
	}
	j.Error = reason.Error()
	o.metrics.Submitted(string(j.Kind), "rejected")
	logger.Info("Rejected job", zap.String("kind", string(j.Kind)), zap.String("species", j.Species), zap.Error(reason))
	return j, nil
}

// accept mints the id, persists the Accepted record and hands the job to the
// pool. The caller gets a snapshot; the live record belongs to the workers.
func (o *Orchestrator) accept(ctx context.Context, j *job.Job, run runFunc) (*job.Job, error) {
	o.mu.RLock()
	closed := o.closed
	o.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !o.reserve() {
		o.metrics.Submitted(string(j.Kind), "queue_full")
		return nil, ErrQueueFull
	}

	j.ID = uuid.NewString()
	if err := j.Transition(job.StatusAccepted, o.now()); err != nil {
		o.release()
		return nil, err
	}
	if err := o.jobs.Put(ctx, j); err != nil {
		o.release()
		o.metrics.Submitted(string(j.Kind), "error")
		var storeErr *job.StoreError
		if errors.As(err, &storeErr) {
			return nil, err
		}
		return nil, &job.StoreError{Op: "put", JobID: j.ID, Err: err}
	}

	snapshot := j.Clone()
	if err := o.schedule(j, run); err != nil {
		o.release()
		if ferr := j.Fail(err.Error(), o.now()); ferr == nil {
			o.write(j)
		}
		return nil, err
	}
	o.metrics.Submitted(string(j.Kind), "accepted")
	logger.Info("Accepted job",
		zap.String("job_id", j.ID), zap.String("kind", string(j.Kind)), zap.String("species", j.Species))
	return snapshot, nil
}

func (o *Orchestrator) dataset(species string) (*dataset.Dataset, error) {
	if species == "" {
		return nil, &job.ValidationError{Field: "species", Msg: "is required"}
	}
	ds, ok := o.datasets.Lookup(species)
	if !ok {
		return nil, &job.UnknownDatasetError{Species: util.NormalizeSpecies(species)}
	}
	return ds, nil
}

func (o *Orchestrator) validateNeighbors(req NeighborsRequest) (*dataset.Dataset, error) {
	ds, err := o.dataset(req.Species)
	if err != nil {
		return nil, err
	}
	if len(req.Sequences) == 0 {
		return nil, &job.ValidationError{Field: "sequences", Msg: "at least one sequence is required"}
	}
	if req.Cutoff == nil {
		return nil, &job.ValidationError{Field: "cutoff", Msg: "is required"}
	}
	if missing := model.MissingSequences(ds.Matrix, req.Sequences); len(missing) > 0 {
		return nil, &model.UnknownSequenceError{ID: missing[0]}
	}
	return ds, nil
}

// validateTree returns the profile table and ids the tree is built from.
func (o *Orchestrator) validateTree(req TreeRequest) (*dataset.ProfileTable, []string, error) {
	ds, err := o.dataset(req.Species)
	if err != nil {
		return nil, nil, err
	}

	var (
		table *dataset.ProfileTable
		ids   []string
	)
	switch {
	case len(req.Sequences) > 0 && len(req.AlleleHashIDs) > 0:
		return nil, nil, &job.ValidationError{Msg: "specify either sequences or allele_hash_ids, not both"}
	case len(req.AlleleHashIDs) > 0:
		if ds.HashProfiles == nil {
			return nil, nil, &job.ValidationError{
				Field: "allele_hash_ids",
				Msg:   fmt.Sprintf("species '%s' has no hashed allele profiles", ds.Species),
			}
		}
		table, ids = ds.HashProfiles, req.AlleleHashIDs
	default:
		table, ids = ds.Profiles, req.Sequences
	}
	if table == nil {
		return nil, nil, &job.ValidationError{Msg: fmt.Sprintf("species '%s' has no allele profiles", ds.Species)}
	}

	if len(ids) < 2 {
		return nil, nil, &job.ValidationError{Msg: "at least two profiles are required to build a tree"}
	}
	if _, ok := o.methods[req.Method]; !ok {
		return nil, nil, &job.ValidationError{Field: "method", Msg: fmt.Sprintf("unsupported tree method '%s'", req.Method)}
	}
	if missing := model.MissingProfiles(table, ids); len(missing) > 0 {
		return nil, nil, &model.ProfileNotFoundError{IDs: missing}
	}
	return table, append([]string(nil), ids...), nil
}
