package render

import (
	"html/template"
	"io"

	"go.uber.org/zap"

	"github.com/yumyai/cgcompare/internal/util"
	"github.com/yumyai/cgcompare/logger"
	"github.com/yumyai/cgcompare/pkg/job"
)

var job_page_template *template.Template

// JobPageData describes the state of a comparative job for rendering.
type JobPageData struct {
	JobID                  string
	Kind                   string
	Species                string
	Method                 string
	Status                 string
	Seconds                float64
	ErrorMessage           string
	Neighbors              []string
	Newick                 string
	HasResult              bool
	Storable               bool
	ShouldRefresh          bool
	RefreshIntervalSeconds int
}

// NewJobPageData fills the page from a job snapshot. Unfinished jobs refresh.
func NewJobPageData(j *job.Job, refreshSeconds int) JobPageData {
	if refreshSeconds <= 0 {
		refreshSeconds = 5
	}
	data := JobPageData{
		JobID:                  j.ID,
		Kind:                   string(j.Kind),
		Species:                util.DisplaySpecies(j.Species),
		Method:                 j.Method,
		Status:                 string(j.Status),
		Seconds:                j.Seconds,
		ErrorMessage:           j.Error,
		Storable:               j.Status == job.StatusSucceeded,
		ShouldRefresh:          !j.Status.Finished() && !j.Status.Terminal(),
		RefreshIntervalSeconds: refreshSeconds,
	}
	if j.Result != nil {
		data.HasResult = true
		data.Neighbors = j.Result.Sequences
		data.Newick = j.Result.Newick
	}
	return data
}

func init() {
	mainTmpl := `
	<!DOCTYPE html>
	<html>
	<head>
	    <title>Comparative job {{ .JobID }}</title>
	    <style>
	        pre {
	            white-space: pre-wrap;
	            word-wrap: break-word;
	        }
	    </style>
		{{ if .ShouldRefresh }}
	    <meta http-equiv="refresh" content="{{ .RefreshIntervalSeconds }}">
		{{ end }}
	</head>
	<body>
		<h1>Comparative analysis</h1>
		<p><strong>Job ID:</strong> {{ .JobID }}</p>
		<p><strong>Kind:</strong> {{ .Kind }}</p>
		<p><strong>Species:</strong> {{ .Species }}</p>
		{{ if .Method }}<p><strong>Method:</strong> {{ .Method }}</p>{{ end }}
		<p><strong>Status:</strong> {{ .Status }}</p>
		{{ if .ErrorMessage }}
			<pre style="color: red;">{{ .ErrorMessage }}</pre>
		{{ else if .HasResult }}
			<p>Finished in {{ printf "%.2f" .Seconds }} seconds.</p>
			{{ if .Newick }}
			<pre>{{ .Newick }}</pre>
			{{ else }}
			<p>{{ len .Neighbors }} neighbours</p>
			<ul>{{ range .Neighbors }}<li>{{ . }}</li>{{ end }}</ul>
			{{ end }}
			{{ if .Storable }}
			<form method="post" action="/comparative/{{ .Kind }}/store?job_id={{ .JobID }}">
				<button type="submit">Store result</button>
			</form>
			{{ end }}
		{{ else }}
			<p>Your job is still running. This page refreshes every {{ .RefreshIntervalSeconds }} seconds.</p>
		{{ end }}
	</body>
	</html>`

	job_page_template = template.Must(template.New("job_page").Parse(mainTmpl))
}

func RenderJobPage(w io.Writer, data JobPageData) error {
	logger.Debug("Rendering job page", zap.String("job_id", data.JobID), zap.String("status", data.Status))
	return job_page_template.Execute(w, data)
}
