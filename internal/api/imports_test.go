package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/ingest"
)

const sampleLine = `66.249.66.1 - - [01/Mar/2026:08:00:00 +0000] "GET / HTTP/1.1" 200 512 "-" "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"` + "\n"

func TestCreateImportQueuesJob(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := uploadRequest(t, "/v1/clients/7/imports",
		uploadPart{field: "kind", body: "raw_access_log"},
		uploadPart{field: "file", filename: "access.log", body: sampleLine},
	)
	rr := env.do(t, req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	resp := decode[createImportResponse](t, rr)
	require.Equal(t, ingest.StatusCounting, resp.Status)

	job, err := env.jobs.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.Equal(t, ingest.TenantID(7), job.TenantID)
	require.Equal(t, "access.log", job.Filename)
	require.Equal(t, ingest.KindRawAccessLog, job.Kind)
	require.Equal(t, env.now, job.CreatedAt)

	p, ok := env.tracker.Get(resp.JobID)
	require.True(t, ok)
	require.Equal(t, ingest.StatusCounting, p.Status)

	task, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, resp.JobID, task.Job.ID)
	data, err := os.ReadFile(task.Path)
	require.NoError(t, err)
	require.Equal(t, sampleLine, string(data))
}

func TestCreateImportKindFromQuery(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := uploadRequest(t, "/v1/clients/7/imports?kind=tabular_log",
		uploadPart{field: "file", filename: "export.csv", body: "a,b\n"},
	)
	rr := env.do(t, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	task, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, ingest.KindTabularLog, task.Job.Kind)
	require.True(t, strings.HasSuffix(task.Path, ".csv"))
}

func TestCreateImportRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		target string
		parts  []uploadPart
		opts   envOption
		status int
	}{
		{
			name:   "bad client id",
			target: "/v1/clients/abc/imports",
			parts:  []uploadPart{{field: "file", filename: "a.log", body: sampleLine}},
			status: http.StatusBadRequest,
		},
		{
			name:   "missing file",
			target: "/v1/clients/1/imports",
			parts:  []uploadPart{{field: "kind", body: "auto"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown kind",
			target: "/v1/clients/1/imports",
			parts: []uploadPart{
				{field: "file", filename: "a.log", body: sampleLine},
				{field: "kind", body: "parquet"},
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "two files",
			target: "/v1/clients/1/imports",
			parts: []uploadPart{
				{field: "file", filename: "a.log", body: sampleLine},
				{field: "file", filename: "b.log", body: sampleLine},
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "body over limit",
			target: "/v1/clients/1/imports",
			parts:  []uploadPart{{field: "file", filename: "a.log", body: strings.Repeat(sampleLine, 50)}},
			opts:   func(o *Options, _ *Deps) { o.MaxUploadBytes = 1024 },
			status: http.StatusRequestEntityTooLarge,
		},
		{
			name:   "job id failure",
			target: "/v1/clients/1/imports",
			parts:  []uploadPart{{field: "file", filename: "a.log", body: sampleLine}},
			opts: func(_ *Options, d *Deps) {
				d.IDs = &fakeIDs{err: errors.New("entropy exhausted")}
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var opts []envOption
			if tc.opts != nil {
				opts = append(opts, tc.opts)
			}
			env := newTestEnv(t, opts...)

			rr := env.do(t, uploadRequest(t, tc.target, tc.parts...))
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			require.Empty(t, env.spoolFiles(t))
			require.Zero(t, env.queue.Len())
		})
	}
}

func TestCreateImportRequiresMultipart(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/clients/1/imports", strings.NewReader(sampleLine))
	req.Header.Set("Content-Type", "text/plain")
	rr := env.do(t, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateImportQueueUnavailable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.queue.Close()

	rr := env.do(t, uploadRequest(t, "/v1/clients/3/imports",
		uploadPart{field: "file", filename: "a.log", body: sampleLine},
	))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Empty(t, env.spoolFiles(t))

	jobs, err := env.jobs.ListJobs(context.Background(), 3, 0, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, ingest.StatusError, jobs[0].Status)
	require.NotNil(t, jobs[0].FinishedAt)

	p, ok := env.tracker.Get(jobs[0].ID)
	require.True(t, ok)
	require.Equal(t, ingest.StatusError, p.Status)
}

func TestGetImport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	job := seedJob(t, env, 5, ingest.StatusImporting)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/imports/"+job.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[ingest.Job](t, rr)
	require.Equal(t, job.ID, got.ID)
	require.Equal(t, ingest.StatusImporting, got.Status)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/imports/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/imports/00000000-0000-0000-0000-00000000ffff", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListImports(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	seedJob(t, env, 9, ingest.StatusCompleted)
	seedJob(t, env, 9, ingest.StatusCounting)
	seedJob(t, env, 10, ingest.StatusCounting)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/clients/9/imports?limit=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[listImportsResponse](t, rr)
	require.Len(t, page.Jobs, 1)
	require.Equal(t, 1, page.Limit)

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/clients/9/imports", nil))
	page = decode[listImportsResponse](t, rr)
	require.Len(t, page.Jobs, 2)
	for _, j := range page.Jobs {
		require.Equal(t, ingest.TenantID(9), j.TenantID)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/v1/clients/11/imports", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"jobs":[]`)
}

func seedJob(t *testing.T, env *testEnv, tenant ingest.TenantID, status ingest.Status) ingest.Job {
	t.Helper()
	id, err := env.ids.NewJobID()
	require.NoError(t, err)
	job := ingest.Job{
		ID:        id,
		TenantID:  tenant,
		Filename:  "seed.log",
		Kind:      ingest.KindRawAccessLog,
		Status:    status,
		CreatedAt: env.now,
	}
	require.NoError(t, env.jobs.CreateJob(context.Background(), job))
	return job
}
