package handler

// DI for all handlers.

import (
	"github.com/yumyai/cgcompare/pkg/hpc"
	"github.com/yumyai/cgcompare/pkg/metrics"
	"github.com/yumyai/cgcompare/pkg/orchestrator"
)

type AppContext struct {
	Jobs    *orchestrator.Orchestrator
	Bifrost *hpc.Bifrost
	Metrics *metrics.Metrics
	// RefreshSeconds is how often the job page reloads while a job is unfinished.
	RefreshSeconds int
}
