package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/model"
)

// Status returns a snapshot of the job. Jobs that dropped out of the status
// store are looked up in the archive. An id of a different kind is reported
// as job.ErrNotFound.
func (o *Orchestrator) Status(ctx context.Context, kind job.Kind, id string) (*job.Job, error) {
	j, err := o.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if kind != "" && j.Kind != kind {
		return nil, job.ErrNotFound
	}
	return j, nil
}

func (o *Orchestrator) lookup(ctx context.Context, id string) (*job.Job, error) {
	if id == "" {
		return nil, job.ErrNotFound
	}
	j, err := o.jobs.Get(ctx, id)
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, job.ErrNotFound) || o.archive == nil || o.archive == o.jobs {
		return nil, wrapStoreError("get", id, err)
	}
	j, err = o.archive.Get(ctx, id)
	if err != nil {
		return nil, wrapStoreError("get", id, err)
	}
	return j, nil
}

// Store archives the result of a Succeeded job and moves it to Stored. Storing
// an already Stored job returns it unchanged; any other status is a
// job.TransitionError.
func (o *Orchestrator) Store(ctx context.Context, kind job.Kind, id string) (*job.Job, error) {
	o.storeMu.Lock()
	defer o.storeMu.Unlock()

	j, err := o.Status(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if j.Status == job.StatusStored {
		return j, nil
	}
	if err := j.Transition(job.StatusStored, o.now()); err != nil {
		return nil, err
	}

	if o.archive != nil {
		if err := o.archive.Put(ctx, j); err != nil {
			return nil, wrapStoreError("archive", id, err)
		}
	}
	if o.archive != o.jobs {
		if err := o.jobs.Put(ctx, j); err != nil {
			return nil, wrapStoreError("put", id, err)
		}
	}
	logger.Info("Stored job result", zap.String("job_id", id), zap.String("kind", string(j.Kind)))
	return j, nil
}

// ProfileDiffs is answered synchronously: the loci where the selected
// profiles disagree, and the table restricted to those loci.
func (o *Orchestrator) ProfileDiffs(species string, ids []string) (*model.DiffResult, error) {
	ds, err := o.dataset(species)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, &job.ValidationError{Field: "sequences", Msg: "at least one sequence is required"}
	}
	if ds.Profiles == nil {
		return nil, &job.ValidationError{Msg: "species '" + ds.Species + "' has no allele profiles"}
	}
	return model.DiffTable(ds.Profiles, ids)
}

// Species lists the species with a loaded dataset.
func (o *Orchestrator) Species() []string {
	return o.datasets.Current().Species()
}

func wrapStoreError(op, id string, err error) error {
	if errors.Is(err, job.ErrNotFound) {
		return job.ErrNotFound
	}
	var storeErr *job.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &job.StoreError{Op: op, JobID: id, Err: err}
}
