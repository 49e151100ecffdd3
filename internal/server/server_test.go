package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"mime"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/config"
	"github.com/ryoshu-dev/ryoshu/internal/id"
	"github.com/ryoshu-dev/ryoshu/internal/logging"
	"github.com/ryoshu-dev/ryoshu/internal/model"
	"github.com/ryoshu-dev/ryoshu/internal/ocr"
	"github.com/ryoshu-dev/ryoshu/internal/store"
)

const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

var fixedNow = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	srv   *Server
	store *store.Store
	dir   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "data", "receipts.db")}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	clock := fixedNow
	srv := New(Options{
		Store:     st,
		Extractor: ocr.NewMock(rand.New(rand.NewSource(7)), func() time.Time { return fixedNow }),
		Builder: capture.NewBuilder(id.NewGenerator(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		})),
		Activity: activitylog.NewRecorder(dir, func() time.Time { return fixedNow }),
		Logger:   logging.Discard(),
		Config:   config.ServerConfig{AllowOrigins: []string{"http://localhost:5173"}},
		Now:      func() time.Time { return fixedNow },
	})
	return &testServer{srv: srv, store: st, dir: dir}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

type receiptData struct {
	Receipt  model.Receipt `json:"receipt"`
	Warnings []string      `json:"warnings"`
}

func (ts *testServer) create(t *testing.T, body map[string]any) model.Receipt {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/receipts", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data receiptData
	env := decode(t, w, &data)
	require.Equal(t, CodeOK, env.Code)
	return data.Receipt
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data map[string]string
	env := decode(t, w, &data)
	assert.Equal(t, CodeOK, env.Code)
	assert.Equal(t, "ok", data["status"])
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t)
	var data struct {
		Categories []model.Category `json:"categories"`
		Default    model.Category   `json:"default"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/categories", nil), &data)
	assert.Equal(t, model.Categories(), data.Categories)
	assert.Equal(t, model.CategoryUncategorized, data.Default)
}

func TestCreateAndGet(t *testing.T) {
	ts := newTestServer(t)
	r := ts.create(t, map[string]any{
		"imageData": pngDataURI,
		"date":      "2024-01-05",
		"amount":    "1200",
		"store":     "コンビニ",
		"category":  "食費",
	})
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, pngDataURI, r.Image)

	w := ts.do(t, http.MethodGet, "/api/receipts/"+r.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data receiptData
	decode(t, w, &data)
	assert.Equal(t, r, data.Receipt)
	assert.Empty(t, data.Warnings)

	entries, err := activitylog.Read(ts.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activitylog.ActionScan, entries[0].Action)
	assert.Equal(t, r.ID, entries[0].ReceiptID)
}

func TestCreate_Defaults(t *testing.T) {
	ts := newTestServer(t)
	r := ts.create(t, map[string]any{"imageData": pngDataURI})
	assert.Equal(t, "2024-01-05", r.Date)
	assert.Equal(t, "0", r.Amount)
	assert.Empty(t, r.Store)
	assert.Equal(t, model.DefaultCategory, r.Category)
}

func TestCreate_InvalidInput(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body map[string]any
	}{
		{"not a data uri", map[string]any{"imageData": "hello"}},
		{"not an image", map[string]any{"imageData": "data:text/plain;base64,aGVsbG8="}},
		{"bad category", map[string]any{"imageData": pngDataURI, "category": "雑費"}},
		{"bad amount", map[string]any{"imageData": pngDataURI, "amount": "1,200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/receipts", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, CodeInvalidParam, decode(t, w, nil).Code)
		})
	}

	n, err := ts.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGet_NotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/receipts/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode(t, w, nil).Code)
}

func TestList_NewestFirstWithSummary(t *testing.T) {
	ts := newTestServer(t)
	first := ts.create(t, map[string]any{"imageData": pngDataURI, "amount": "100", "category": "食費"})
	second := ts.create(t, map[string]any{"imageData": pngDataURI, "amount": "250", "category": "交通費"})

	var data struct {
		Receipts []model.Receipt `json:"receipts"`
		Summary  struct {
			Count int    `json:"count"`
			Total string `json:"total"`
		} `json:"summary"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/receipts", nil), &data)
	require.Len(t, data.Receipts, 2)
	assert.Equal(t, second.ID, data.Receipts[0].ID)
	assert.Equal(t, first.ID, data.Receipts[1].ID)
	assert.Equal(t, 2, data.Summary.Count)
	assert.Equal(t, "350", data.Summary.Total)
}

func TestEdit(t *testing.T) {
	ts := newTestServer(t)
	r := ts.create(t, map[string]any{"imageData": pngDataURI, "amount": "1200", "store": "コンビニ", "category": "食費"})

	w := ts.do(t, http.MethodPut, "/api/receipts/"+r.ID, map[string]any{"amount": "1500"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data receiptData
	decode(t, w, &data)
	assert.Equal(t, "1500", data.Receipt.Amount)
	assert.Equal(t, "コンビニ", data.Receipt.Store)
	assert.Equal(t, model.CategoryFood, data.Receipt.Category)
	assert.Equal(t, r.Image, data.Receipt.Image)

	got, ok, err := ts.store.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1500", got.Amount)
}

func TestEdit_Errors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/receipts/42", map[string]any{"amount": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode(t, w, nil).Code)

	r := ts.create(t, map[string]any{"imageData": pngDataURI})
	w = ts.do(t, http.MethodPut, "/api/receipts/"+r.ID, map[string]any{"date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatch_Atomic(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"receipts": []map[string]any{
			{"imageData": pngDataURI, "store": "A"},
			{"imageData": pngDataURI, "store": "B"},
			{"imageData": pngDataURI, "store": "C"},
		},
	}
	w := ts.do(t, http.MethodPost, "/api/receipts/batch", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Attempted int `json:"attempted"`
		Confirmed int `json:"confirmed"`
	}
	decode(t, w, &res)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Confirmed)

	all, err := ts.store.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	entries, err := activitylog.Read(ts.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, activitylog.ActionCommit, entries[0].Action)
	assert.Equal(t, 3, entries[0].Count)
}

func TestBatch_BestEffort(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"atomic":   false,
		"receipts": []map[string]any{{"imageData": pngDataURI}, {"imageData": pngDataURI}},
	}
	w := ts.do(t, http.MethodPost, "/api/receipts/batch", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	n, err := ts.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestBatch_Rejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/receipts/batch", map[string]any{"receipts": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := map[string]any{
		"receipts": []map[string]any{{"imageData": pngDataURI}, {"imageData": "nope"}},
	}
	w = ts.do(t, http.MethodPost, "/api/receipts/batch", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Message, "receipt 1")

	n, err := ts.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing saved when any item is invalid")
}

func TestExtract(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/extract", map[string]any{"imageData": pngDataURI})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Extractor string        `json:"extractor"`
		Candidate ocr.Candidate `json:"candidate"`
	}
	decode(t, w, &data)
	assert.Equal(t, "mock", data.Extractor)
	assert.Equal(t, "2024-01-05", data.Candidate.Date)
	assert.Contains(t, ocr.MockStores, data.Candidate.Store)

	w = ts.do(t, http.MethodPost, "/api/extract", map[string]any{"imageData": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]any{"imageData": pngDataURI, "date": "2024-01-05", "amount": "1200", "store": "コンビニ", "category": "食費"})

	w := ts.do(t, http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeCSV, w.Header().Get("Content-Type"))
	assert.Equal(t, "日付,金額,店舗名,カテゴリ\n2024-01-05,1200,コンビニ,食費\n", w.Body.String())

	_, params, err := mime.ParseMediaType(w.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "領収書データ_2024-01-05.csv", params["filename"])

	w = ts.do(t, http.MethodGet, "/api/export/csv?bom=true", nil)
	assert.True(t, strings.HasPrefix(w.Body.String(), "\ufeff日付"))

	w = ts.do(t, http.MethodGet, "/api/export/csv?bom=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportXLSX(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, map[string]any{"imageData": pngDataURI, "amount": "800", "store": "書店"})

	w := ts.do(t, http.MethodGet, "/api/export/xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("領収書")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "書店", rows[1][2])
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/healthz", nil)
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	want := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set(RequestIDHeader, want)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, want, rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/receipts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

type downStore struct{}

func (downStore) All(context.Context) ([]model.Receipt, error) {
	return nil, store.ErrUnavailable
}

func (downStore) Get(context.Context, string) (model.Receipt, bool, error) {
	return model.Receipt{}, false, store.ErrUnavailable
}

func (downStore) Put(context.Context, model.Receipt) error { return store.ErrWrite }

func (downStore) PutAll(context.Context, []model.Receipt) error { return store.ErrWrite }

func TestStorageUnavailable(t *testing.T) {
	srv := New(Options{Store: downStore{}, Logger: logging.Discard()})

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeUnavailable, decode(t, w, nil).Code)

	body := `{"receipts":[{"imageData":"` + pngDataURI + `"}]}`
	req = httptest.NewRequest(http.MethodPost, "/api/receipts/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var res struct {
		Failed []string `json:"failed"`
	}
	env := decode(t, w, &res)
	assert.Equal(t, CodeServerErr, env.Code)
	assert.Len(t, res.Failed, 1)
}
