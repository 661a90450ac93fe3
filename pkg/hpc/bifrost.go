package hpc

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
)

// Sequence, analysis and scheduler job ids are pasted into a remote shell
// command, so they are limited to a safe alphabet.
var safeArg = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

type Analysis struct {
	Identifier string `json:"identifier"`
	Version    string `json:"version,omitempty"`
}

type AnalysisList struct {
	Analyses []Analysis `json:"analyses"`
}

// Job is a Bifrost run on the cluster. Its JobID is assigned by the cluster
// scheduler, not by this service.
type Job struct {
	JobID        string     `json:"job_id,omitempty"`
	Sequences    []string   `json:"sequences,omitempty"`
	Analyses     []string   `json:"analyses,omitempty"`
	Status       job.Status `json:"status"`
	Error        string     `json:"error,omitempty"`
	ProcessOut   string     `json:"process_out,omitempty"`
	ProcessError string     `json:"process_error,omitempty"`
}

type Bifrost struct {
	runner   Runner
	analyses []Analysis
	known    map[string]struct{}
	prefix   string
	script   string
}

func NewBifrost(runner Runner, cfg *config.Config) *Bifrost {
	b := &Bifrost{
		runner: runner,
		known:  make(map[string]struct{}, len(cfg.BifrostAnalyses)),
		prefix: strings.TrimSpace(cfg.HPC.CommandPrefix),
		script: path.Join(cfg.HPC.ScriptDir, cfg.HPC.ScriptName),
	}
	for _, a := range cfg.BifrostAnalyses {
		b.analyses = append(b.analyses, Analysis{Identifier: a.Identifier, Version: a.Version})
		b.known[a.Identifier] = struct{}{}
	}
	return b
}

// ListAnalyses returns the configured analyses. It never contacts the cluster.
func (b *Bifrost) ListAnalyses() AnalysisList {
	list := AnalysisList{Analyses: make([]Analysis, len(b.analyses))}
	copy(list.Analyses, b.analyses)
	return list
}

// Init launches the Bifrost script for the sequences and analyses. Unknown
// analyses reject the job without contacting the cluster. The returned error
// is only set when the cluster could not be reached.
func (b *Bifrost) Init(ctx context.Context, sequences, analyses []string) (*Job, error) {
	j := &Job{Sequences: sequences, Analyses: analyses, Status: job.StatusInitializing}

	if msg := b.validate(sequences, analyses); msg != "" {
		j.Status = job.StatusRejected
		j.Error = msg
		logger.Info("Rejected Bifrost job", zap.String("reason", msg))
		return j, nil
	}

	out, err := b.run(ctx, b.launchCommand(sequences, analyses))
	if err != nil {
		return nil, err
	}
	j.ProcessOut = out.Stdout
	j.ProcessError = out.Stderr

	id := schedulerID(out.Stdout)
	switch {
	case strings.Contains(out.Stdout, "error"):
		j.Status = job.StatusFailed
		j.Error = "Bifrost launch reported an error"
	case out.ExitCode != 0:
		j.Status = job.StatusFailed
		j.Error = fmt.Sprintf("Bifrost launch exited with status %d", out.ExitCode)
	case id == "":
		j.Status = job.StatusFailed
		j.Error = "Bifrost launch printed no scheduler job id"
	default:
		j.Status = job.StatusAccepted
		j.JobID = id
	}
	return j, nil
}

// Status asks the scheduler about a launched job with checkjob.
func (b *Bifrost) Status(ctx context.Context, id string) (*Job, error) {
	if !safeArg.MatchString(id) {
		return nil, &job.ValidationError{Field: "job_id", Msg: fmt.Sprintf("invalid scheduler job id '%s'", id)}
	}

	out, err := b.run(ctx, "checkjob "+id)
	if err != nil {
		return nil, err
	}

	j := &Job{JobID: id, ProcessOut: out.Stdout, ProcessError: out.Stderr, Status: job.StatusAccepted}
	if strings.Contains(out.Stdout, "error") || strings.TrimSpace(out.Stderr) != "" {
		j.Status = job.StatusFailed
		j.Error = "checkjob reported an error"
	}
	return j, nil
}

func (b *Bifrost) validate(sequences, analyses []string) string {
	if len(sequences) == 0 {
		return "At least one sequence is required."
	}
	if len(analyses) == 0 {
		return "At least one Bifrost analysis is required."
	}
	for _, a := range analyses {
		if _, ok := b.known[a]; !ok {
			return fmt.Sprintf("Could not find a Bifrost analysis with the identifier '%s'.", a)
		}
	}
	for _, s := range sequences {
		if !safeArg.MatchString(s) {
			return fmt.Sprintf("Invalid sequence id '%s'.", s)
		}
	}
	return ""
}

func (b *Bifrost) launchCommand(sequences, analyses []string) string {
	cmd := fmt.Sprintf("%s -s %s -co %s", b.script, strings.Join(sequences, " "), strings.Join(analyses, " "))
	if b.prefix != "" {
		cmd = b.prefix + " " + cmd
	}
	return cmd
}

func (b *Bifrost) run(ctx context.Context, command string) (Output, error) {
	if b.runner == nil {
		return Output{}, ErrNotConfigured
	}
	return b.runner.Run(ctx, command)
}

// schedulerID is the last non-empty line the submit command printed, which is
// where msub and qsub put the job id.
func schedulerID(stdout string) string {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
