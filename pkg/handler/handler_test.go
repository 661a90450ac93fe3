package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumyai/cgcompare/internal/config"
	"github.com/yumyai/cgcompare/pkg/dataset"
	"github.com/yumyai/cgcompare/pkg/db"
	"github.com/yumyai/cgcompare/pkg/hpc"
	"github.com/yumyai/cgcompare/pkg/job"
	"github.com/yumyai/cgcompare/pkg/metrics"
	"github.com/yumyai/cgcompare/pkg/model"
	"github.com/yumyai/cgcompare/pkg/orchestrator"
)

// createFakeGrapeTree writes a 'grapetree' executable that prints a fixed tree.
func createFakeGrapeTree(t *testing.T, dir string, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake grapetree needs a POSIX shell")
	}
	content := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grapetree"), []byte(content), 0o755))
}

// prepend a directory to PATH for this test
func prependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

type fakeRunner struct {
	out hpc.Output
}

func (f *fakeRunner) Run(ctx context.Context, command string) (hpc.Output, error) {
	return f.out, nil
}

func fixtureDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	m, err := dataset.ReadDistanceMatrix(strings.NewReader(""+
		"S1 0 3 8\n"+
		"S2 3 0 5\n"+
		"S3 8 5 0\n"), false)
	require.NoError(t, err)
	p, err := dataset.ReadProfileTable(strings.NewReader("FILE\tl1\tl2\nS1\t1\t2\nS2\t1\t3\nS3\t-\t3\n"))
	require.NoError(t, err)
	return &dataset.Dataset{Species: "Salmonella_enterica", Matrix: m, Profiles: p}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tmp := t.TempDir()
	createFakeGrapeTree(t, tmp, `echo "(S1:1,S2:2);"`)
	prependPath(t, tmp)

	cfg := &config.Config{
		BifrostAnalyses: []config.BifrostAnalysis{{Identifier: "cge_mlst", Version: "v2.2.6"}},
		HPC:             config.HPC{ScriptName: "launch.sh"},
	}
	o := orchestrator.New(
		dataset.NewRegistry(dataset.NewIndex(fixtureDataset(t))),
		db.NewMemoryStore(100, time.Hour),
		model.NewGrapeTree("grapetree"),
		orchestrator.Options{Workers: 2, TreeMethods: []string{"MSTreeV2", "NJ"}},
	)
	t.Cleanup(func() { _ = o.Close(context.Background()) })

	app := &AppContext{
		Jobs:    o,
		Bifrost: hpc.NewBifrost(&fakeRunner{out: hpc.Output{Stdout: "4711\n"}}, cfg),
		Metrics: metrics.New(),
	}
	srv := httptest.NewServer(NewRouter(app))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJob(t *testing.T, resp *http.Response) *job.Job {
	t.Helper()
	var j job.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&j))
	return &j
}

func waitForStatus(t *testing.T, url string) *job.Job {
	t.Helper()
	var got *job.Job
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var j job.Job
		if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
			return false
		}
		got = &j
		return j.Status.Finished()
	}, 5*time.Second, 20*time.Millisecond)
	return got
}

func TestNearestNeighborsFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/comparative/nearest_neighbors", map[string]any{
		"species":   "Salmonella enterica",
		"sequences": []string{"S1"},
		"cutoff":    5,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	j := decodeJob(t, resp)
	assert.Equal(t, job.StatusAccepted, j.Status)
	assert.Equal(t, "/jobs/"+j.ID, resp.Header.Get("Location"))

	got := waitForStatus(t, srv.URL+"/comparative/nearest_neighbors/status?job_id="+j.ID)
	assert.Equal(t, job.StatusSucceeded, got.Status)
	assert.Equal(t, []string{"S2"}, got.Result.Sequences)

	// Same id, other kind.
	resp = get(t, srv.URL+"/comparative/cgmlst/status?job_id="+j.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/comparative/nearest_neighbors/store?job_id="+j.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, job.StatusStored, decodeJob(t, resp).Status)
}

func TestTreeFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/comparative/cgmlst/tree", map[string]any{
		"species":   "Salmonella_enterica",
		"sequences": []string{"S1", "S2"},
		"method":    "NJ",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	j := decodeJob(t, resp)

	got := waitForStatus(t, srv.URL+"/comparative/cgmlst/status?job_id="+j.ID)
	assert.Equal(t, job.StatusSucceeded, got.Status)
	assert.Equal(t, "(S1:1,S2:2);", got.Result.Newick)

	page := get(t, srv.URL+"/jobs/"+j.ID)
	require.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", page.Header.Get("Content-Type"))
}

func TestSubmissionErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"malformed json", "/comparative/nearest_neighbors", `{"species":`, http.StatusBadRequest, "invalid request body"},
		{"unknown field", "/comparative/nearest_neighbors", `{"specie":"x"}`, http.StatusBadRequest, "unknown field"},
		{"unknown species", "/comparative/nearest_neighbors", `{"species":"Listeria","sequences":["S1"],"cutoff":1}`, http.StatusUnprocessableEntity, "Listeria"},
		{"unknown sequence", "/comparative/nearest_neighbors", `{"species":"Salmonella_enterica","sequences":["X"],"cutoff":1}`, http.StatusUnprocessableEntity, "'X'"},
		{"tree with one profile", "/comparative/cgmlst/tree", `{"species":"Salmonella_enterica","sequences":["S1"]}`, http.StatusUnprocessableEntity, "at least two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body["error"], tt.wantError)
			if tt.wantStatus == http.StatusUnprocessableEntity {
				assert.Equal(t, "Rejected", body["status"])
			}
		})
	}
}

func TestStatusErrors(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/comparative/cgmlst/status").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/comparative/cgmlst/status?job_id=nope").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/jobs/nope").StatusCode)
	assert.Equal(t, http.StatusNotFound, postJSON(t, srv.URL+"/comparative/blast/store?job_id=x", nil).StatusCode)
}

func TestProfileDiffsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/comparative/cgmlst/profile_diffs", map[string]any{
		"species":   "Salmonella_enterica",
		"sequences": []string{"S1", "S2", "S3"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.DiffResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, []string{"l1", "l2"}, got.Loci)
	assert.Equal(t, "-", got.Table["l1"]["S3"])

	resp = postJSON(t, srv.URL+"/comparative/cgmlst/profile_diffs", map[string]any{
		"species":   "Salmonella_enterica",
		"sequences": []string{"S1", "S9"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestBifrostEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/bifrost/list_analyses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list hpc.AnalysisList
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, []hpc.Analysis{{Identifier: "cge_mlst", Version: "v2.2.6"}}, list.Analyses)

	resp = postJSON(t, srv.URL+"/bifrost/init", map[string]any{"sequences": []string{"S1"}, "analyses": []string{"cge_mlst"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var launched hpc.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&launched))
	assert.Equal(t, "4711", launched.JobID)
	assert.Equal(t, job.StatusAccepted, launched.Status)

	resp = postJSON(t, srv.URL+"/bifrost/init", map[string]any{"sequences": []string{"S1"}, "analyses": []string{"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = get(t, srv.URL+"/bifrost/status?job_id=4711")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/bifrost/status?job_id=4711;reboot")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthSpeciesAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/v1/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Health)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = get(t, srv.URL+"/api/v1/species")
	var species SpeciesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&species))
	assert.Equal(t, []string{"Salmonella_enterica"}, species.Species)

	resp = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", job.ErrNotFound, http.StatusNotFound},
		{"bad transition", &job.TransitionError{From: job.StatusRunning, To: job.StatusStored}, http.StatusConflict},
		{"store down", &job.StoreError{Op: "put", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{"shut down", orchestrator.ErrClosed, http.StatusServiceUnavailable},
		{"queue full", orchestrator.ErrQueueFull, http.StatusServiceUnavailable},
		{"unknown sequence", &model.UnknownSequenceError{ID: "S9"}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
