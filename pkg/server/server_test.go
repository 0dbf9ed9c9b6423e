package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/config"
	"github.com/codescribe-ai/codescribe/pkg/datastore"
	"github.com/codescribe-ai/codescribe/pkg/interfaces"
	"github.com/codescribe-ai/codescribe/pkg/sandbox"
)

func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

type testEnv struct {
	server  *Server
	store   *datastore.InMemoryStore
	workDir string
}

func newTestEnv(t *testing.T, pipeline PipelineFunc) *testEnv {
	t.Helper()

	workDir := t.TempDir()
	store := datastore.NewInMemoryStore()
	manager := sandbox.NewManager(
		sandbox.WithManagerInterpreter("sh"),
		sandbox.WithManagerWorkDir(workDir),
	)

	srv := New(
		config.ServerConfig{Addr: ":0", MaxUploadBytes: 1 << 20, WorkDir: workDir},
		WithJobStore(store),
		WithSandboxManager(manager),
		WithPipeline(pipeline),
	)

	return &testEnv{server: srv, store: store, workDir: workDir}
}

func copyingPipeline(t *testing.T) PipelineFunc {
	return func(ctx context.Context, mode, inputDir, outputDir, problemStatement string) error {
		return os.WriteFile(filepath.Join(outputDir, "docs.md"), []byte("# generated for "+mode), 0o644)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	recorder := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func TestGenerateDocumentationJob(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))

	body, contentType := multipartBody(t,
		map[string]string{"mode": ModeDocumentation},
		"codebase.zip", zipBytes(t, map[string]string{"main.py": "print('x')"}),
	)

	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	payload := decodeJSON(t, recorder)
	jobID, _ := payload["id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "completed", payload["status"])

	job, err := env.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.JobCompleted, job.Status)

	_, err = os.Stat(filepath.Join(env.workDir, "outputs", jobID+"_output.zip"))
	require.NoError(t, err)

	// The unpacked upload is removed once the job finishes.
	_, err = os.Stat(filepath.Join(env.workDir, "uploads", jobID))
	require.True(t, os.IsNotExist(err))
}

func TestGenerateRejectsOversizedUpload(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))
	env.server.cfg.MaxUploadBytes = 64

	body, contentType := multipartBody(t, nil,
		"codebase.zip", zipBytes(t, map[string]string{"main.py": "print('payload bigger than limit')"}),
	)

	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
}

func TestGenerateRejectsUnsupportedArchive(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))

	body, contentType := multipartBody(t, nil, "payload.rar", []byte("junk"))
	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGenerateRejectsUnknownMode(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))

	body, contentType := multipartBody(t,
		map[string]string{"mode": "translate"},
		"codebase.zip", zipBytes(t, map[string]string{"a.py": "pass"}),
	)
	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGenerateRequiresProblemStatementForCodeGen(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))

	body, contentType := multipartBody(t,
		map[string]string{"mode": ModeCodeGeneration},
		"docs.zip", zipBytes(t, map[string]string{"docs.md": "# api"}),
	)
	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGenerateRecordsPipelineFailure(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context, mode, inputDir, outputDir, problemStatement string) error {
		return fmt.Errorf("model unavailable")
	})

	body, contentType := multipartBody(t, nil,
		"codebase.zip", zipBytes(t, map[string]string{"a.py": "pass"}),
	)
	recorder := env.do(t, http.MethodPost, "/api/generate", body, contentType)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	jobs, err := env.store.ListJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, interfaces.JobFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].Error, "model unavailable")
}

func TestGetJob(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))
	require.NoError(t, env.store.CreateJob(context.Background(), &interfaces.Job{
		ID: "job-1", Mode: ModeDocumentation, Status: interfaces.JobCompleted,
	}))

	recorder := env.do(t, http.MethodGet, "/api/jobs/job-1", nil, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/api/jobs/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func seedOutputs(t *testing.T, env *testEnv, jobID string, files map[string][]byte) {
	t.Helper()

	dir := filepath.Join(env.workDir, "outputs", jobID)
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
}

func TestOutputFileEndpoints(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))
	seedOutputs(t, env, "job-9", map[string][]byte{
		"docs.md":        []byte("# docs"),
		"sub/extra.md":   []byte("more"),
		"binary/blob.md": {0xff, 0xfe, 0x00, 0x01},
	})

	recorder := env.do(t, http.MethodGet, "/api/outputs/job-9/files/", nil, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeJSON(t, recorder)
	files, _ := payload["files"].([]interface{})
	assert.Len(t, files, 3)

	recorder = env.do(t, http.MethodGet, "/api/outputs/job-9/files/sub/extra.md", nil, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "more", decodeJSON(t, recorder)["content"])

	recorder = env.do(t, http.MethodGet, "/api/outputs/job-9/files/binary/blob.md", nil, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/api/outputs/job-9/files/..%2F..%2Fsecret", nil, "")
	assert.NotEqual(t, http.StatusOK, recorder.Code)

	recorder = env.do(t, http.MethodGet, "/api/outputs/nope/files/", nil, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestExecutionLifecycle(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))
	seedOutputs(t, env, "job-run", map[string][]byte{
		"loop.py": []byte("echo ready\nread line\necho got $line\n"),
	})

	recorder := env.do(t, http.MethodPost, "/api/outputs/job-run/run?file=loop.py", nil, "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	payload := decodeJSON(t, recorder)
	executionID, _ := payload["execution_id"].(string)
	require.NotEmpty(t, executionID)
	assert.Contains(t, payload["output"], "ready")

	input := bytes.NewBufferString(`{"input":"hello"}`)
	recorder = env.do(t, http.MethodPost, "/api/executions/"+executionID+"/input", input, "application/json")
	require.Equal(t, http.StatusOK, recorder.Code)

	deadline := time.Now().Add(3 * time.Second)
	var combined string
	for time.Now().Before(deadline) {
		recorder = env.do(t, http.MethodGet, "/api/executions/"+executionID+"/output", nil, "")
		require.Equal(t, http.StatusOK, recorder.Code)
		payload = decodeJSON(t, recorder)
		combined += payload["output"].(string)
		if running, _ := payload["running"].(bool); !running {
			break
		}
	}
	assert.Contains(t, combined, "got hello")

	recorder = env.do(t, http.MethodPost, "/api/executions/"+executionID+"/stop", nil, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestExecutionRejectsNonPython(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))
	seedOutputs(t, env, "job-sh", map[string][]byte{"script.sh": []byte("echo no")})

	recorder := env.do(t, http.MethodPost, "/api/outputs/job-sh/run?file=script.sh", nil, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestExecutionUnknownID(t *testing.T) {
	env := newTestEnv(t, copyingPipeline(t))

	recorder := env.do(t, http.MethodGet, "/api/executions/ghost/output", nil, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = env.do(t, http.MethodPost, "/api/executions/ghost/stop", nil, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
