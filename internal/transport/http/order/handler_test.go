package order

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/cache"
	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	repo "github.com/Additional-Code/stitchbook/internal/repository/order"
	service "github.com/Additional-Code/stitchbook/internal/service/order"
	"github.com/Additional-Code/stitchbook/internal/storage"
	"github.com/Additional-Code/stitchbook/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	e   *echo.Echo
	dir string
}

func newTestServer(t *testing.T, maxUpload int64) testServer {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Config{Storage: config.Storage{MaxUploadBytes: maxUpload}}
	svc := service.NewService(service.Params{
		Repository: repo.NewRepository(testutil.SQLite(t)),
		Artifacts:  storage.NewLocal(dir, storage.NewNamer()),
		Cache:      cache.Noop(),
		Config:     cfg,
		Logger:     zap.NewNop(),
		Publisher:  messaging.NewNoop("orders.lifecycle"),
	})

	e := echo.New()
	Register(e, NewHandler(svc, cfg))
	return testServer{e: e, dir: dir}
}

func (s testServer) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s testServer) artifacts(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	return len(entries)
}

func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "style.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCreateOrderEndpoint(t *testing.T) {
	s := newTestServer(t, 1<<20)

	code, env := s.do(t, multipartRequest(t, map[string]string{
		"billNumber":   "B100",
		"deliveryDate": "2025-01-10",
		"notes":        "slim fit",
	}, []byte("jpeg-bytes")))
	require.Equal(t, http.StatusCreated, code)

	var created struct {
		Message    string `json:"message"`
		BillNumber string `json:"billNumber"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "B100", created.BillNumber)
	assert.NotEmpty(t, created.Message)
	assert.Equal(t, 1, s.artifacts(t))

	code, env = s.do(t, multipartRequest(t, map[string]string{
		"billNumber":   "B100",
		"deliveryDate": "2025-01-11",
	}, []byte("other")))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error.Kind)
	assert.Equal(t, 1, s.artifacts(t))
}

func TestCreateOrderEndpointValidation(t *testing.T) {
	s := newTestServer(t, 4)

	code, env := s.do(t, multipartRequest(t, map[string]string{"billNumber": "B1"}, []byte("x")))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", env.Error.Kind)

	code, _ = s.do(t, multipartRequest(t, map[string]string{"billNumber": "B1", "deliveryDate": "2025-01-10"}, []byte("too large")))
	assert.Equal(t, http.StatusBadRequest, code)

	assert.Equal(t, 0, s.artifacts(t))
}

func TestCreateOrderEndpointWithoutImage(t *testing.T) {
	s := newTestServer(t, 0)

	code, _ := s.do(t, multipartRequest(t, map[string]string{"billNumber": "B2", "deliveryDate": "2025-01-10"}, nil))
	require.Equal(t, http.StatusCreated, code)

	code, env := s.do(t, httptest.NewRequest(http.MethodGet, "/orders/B2", nil))
	require.Equal(t, http.StatusOK, code)

	var order map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "N/A", order["customerName"])
	assert.Equal(t, "", order["notes"])
	assert.Nil(t, order["imagePath"])
	assert.Nil(t, order["completionDate"])
	assert.Equal(t, "2025-01-10", order["deliveryDate"])
}

func TestCompleteAndListEndpoints(t *testing.T) {
	s := newTestServer(t, 0)
	for _, f := range []map[string]string{
		{"billNumber": "A1", "deliveryDate": "2025-01-05"},
		{"billNumber": "A2", "deliveryDate": "2025-01-01"},
		{"billNumber": "A3", "deliveryDate": "2025-03-01"},
	} {
		code, _ := s.do(t, multipartRequest(t, f, nil))
		require.Equal(t, http.StatusCreated, code)
	}

	code, _ := s.do(t, httptest.NewRequest(http.MethodPut, "/orders/A1/complete", nil))
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(t, httptest.NewRequest(http.MethodPut, "/orders/A1/complete", nil))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "order not found or status not updated", env.Error.Message)

	code, _ = s.do(t, httptest.NewRequest(http.MethodPut, "/orders/missing/complete", nil))
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, httptest.NewRequest(http.MethodGet, "/orders/pending?startDate=2025-01-01&endDate=2025-02-01", nil))
	require.Equal(t, http.StatusOK, code)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "A2", pending[0]["billNumber"])
	assert.Equal(t, "Pending", pending[0]["status"])
	assert.NotContains(t, pending[0], "completionDate")

	code, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/orders/pending?startDate=soon", nil))
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusOK, code)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 3)
	assert.Equal(t, "A3", all[0]["billNumber"])
	assert.Equal(t, "A1", all[2]["billNumber"])
	assert.Equal(t, "Complete", all[2]["status"])
	assert.NotNil(t, all[2]["completionDate"])

	code, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/orders/unknown", nil))
	assert.Equal(t, http.StatusNotFound, code)
}
