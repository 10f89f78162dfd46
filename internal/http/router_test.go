package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticket-tagger/backend/internal/ai"
	"github.com/ticket-tagger/backend/internal/config"
	"github.com/ticket-tagger/backend/internal/models"
	"github.com/ticket-tagger/backend/internal/service"
)

type fixture struct {
	router *gin.Engine
	logs   *bytes.Buffer
	input  string
	output string
}

func newFixture(t *testing.T, adminKey, origins string) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	input := filepath.Join(dir, "data", "tickets.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(input), 0o755))
	require.NoError(t, os.WriteFile(input, []byte(`[{"id":1,"message":"I can't log in"}]`), 0o600))

	cfg := config.Config{
		AdminKey:    adminKey,
		CORSAllowed: origins,
		InputPath:   input,
		OutputPath:  filepath.Join(dir, "results", "tagged.json"),
	}
	logs := &bytes.Buffer{}
	tagger := &service.TaggingService{
		Classifier: ai.MockClassifier{},
		Logger:     zerolog.Nop(),
	}
	return fixture{
		router: Router(cfg, tagger, nil, zerolog.New(logs)),
		logs:   logs,
		input:  input,
		output: cfg.OutputPath,
	}
}

func (f fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRouterCategoriesAndRequestID(t *testing.T) {
	f := newFixture(t, "", "*")

	w := f.do(t, http.MethodGet, "/api/categories", "", map[string]string{"X-Request-Id": "req_router"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req_router", w.Header().Get("X-Request-Id"))

	var body struct {
		Categories []models.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.Categories, body.Categories)

	assert.Contains(t, f.logs.String(), `"request_id":"req_router"`)
	assert.Contains(t, f.logs.String(), `"path":"/api/categories"`)

	w = f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("X-Request-Id"), "req_")
}

func TestRouterRunsClosedWithoutAdminKey(t *testing.T) {
	f := newFixture(t, "", "*")
	victim := filepath.Join(filepath.Dir(f.output), "..", "victim.conf")
	require.NoError(t, os.WriteFile(victim, []byte("important=1"), 0o600))

	body := `{"output_path":"../victim.conf"}`
	w := f.do(t, http.MethodPost, "/api/runs", body, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ADMIN_DISABLED", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/runs", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	raw, err := os.ReadFile(victim)
	require.NoError(t, err)
	assert.Equal(t, "important=1", string(raw))
	assert.NoFileExists(t, f.output)
}

func TestRouterRunsRequireAdminKey(t *testing.T) {
	f := newFixture(t, "s3cret", "*")

	w := f.do(t, http.MethodPost, "/api/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/runs", "", map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoFileExists(t, f.output)

	w = f.do(t, http.MethodPost, "/api/runs", `{"output_path":"../../escape.json"}`, map[string]string{"X-Admin-Key": "s3cret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PATH", errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/runs", "", map[string]string{"X-Admin-Key": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary service.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, service.StatusSuccess, summary.Status)
	assert.Equal(t, 1, summary.Tickets)
	assert.FileExists(t, f.output)
}

func TestRouterRunsLatestWithoutStore(t *testing.T) {
	f := newFixture(t, "", "*")
	w := f.do(t, http.MethodGet, "/api/runs/latest", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestRouterCORS(t *testing.T) {
	preflight := map[string]string{
		"Origin":                        "https://app.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	}

	f := newFixture(t, "", "*")
	w := f.do(t, http.MethodOptions, "/api/classify", "", preflight)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	f = newFixture(t, "", "https://app.example.com")
	w = f.do(t, http.MethodOptions, "/api/classify", "", preflight)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = f.do(t, http.MethodOptions, "/api/classify", "", map[string]string{
		"Origin":                        "https://evil.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterSwagger(t *testing.T) {
	f := newFixture(t, "", "*")

	w := f.do(t, http.MethodGet, "/swagger/index.html", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/runs")
}
