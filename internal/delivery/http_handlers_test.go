package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creativelens/internal/domain"
	"creativelens/internal/infrastructure"
	"creativelens/internal/usecase"
	"creativelens/pkg/logger"
	"creativelens/pkg/metrics"
)

type testServer struct {
	router *gin.Engine
	db     *infrastructure.Database
	perf   *infrastructure.PerformanceRepository
}

func newTestServer(t *testing.T, analyzerURL string) *testServer {
	t.Helper()
	log := logger.Discard()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	db := infrastructure.NewDatabase(infrastructure.NewMemoryBackend(0), log, m)
	cache := infrastructure.NewMemoryAnalysisCache(48 * time.Hour)
	perf := infrastructure.NewPerformanceRepository(db, log)
	history := infrastructure.NewHistoryRepository(db, 50, log)
	clients := infrastructure.NewClientRepository(db)
	reportLog := infrastructure.NewReportLogRepository(db)
	matcher := usecase.NewPriorityMatcher(nil)
	analyzer := infrastructure.NewHTTPAnalyzer(analyzerURL, "", 5*time.Second, 100, log)

	handlers := NewHTTPHandlers(
		usecase.NewStorageService(db, cache, db.Backend(), log),
		usecase.NewClientService(clients, history, perf, reportLog, log),
		usecase.NewImportService(infrastructure.NewXLSXReportReader(usecase.DateColumns), perf, clients, reportLog, log, m),
		usecase.NewPerformanceService(perf, history, clients, matcher, log, m, time.UTC, 7),
		usecase.NewLinkService(perf, history, clients, matcher, nil, log, m, 2),
		usecase.NewAnalysisService(analyzer, infrastructure.NewImageInspector(), cache, history, clients, log, m, 15),
		log,
	)
	router := NewHTTPRouter(handlers, log, m, registry, RouterConfig{MaxUploadBytes: 1 << 20}).SetupRoutes()
	return &testServer{router: router, db: db, perf: perf}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) connect(t *testing.T) {
	t.Helper()
	w := s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/storage/connect", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func (s *testServer) createClient(t *testing.T, name, account string) domain.Client {
	t.Helper()
	body, _ := json.Marshal(usecase.ClientInput{Name: name, MetaAccountName: account})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var c domain.Client
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	return c
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "healthy", decodeBody(t, w)["status"])

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/storage/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["connected"])
}

func TestRequiresConnection(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := s.do(t, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "req-123", decodeBody(t, w)["request_id"])

	s.connect(t)
	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decodeBody(t, w)["count"])
}

func TestClientLifecycle(t *testing.T) {
	s := newTestServer(t, "")
	s.connect(t)

	c := s.createClient(t, "Acme", "Acme Ads")
	assert.Equal(t, "EUR", c.Currency)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", bytes.NewReader([]byte(`{"name":"Dup","metaAccountName":"Acme Ads"}`)))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, s.do(t, req).Code)

	w := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/clients/"+c.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/clients/"+c.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPerformanceAndLinking(t *testing.T) {
	s := newTestServer(t, "")
	s.connect(t)
	c := s.createClient(t, "Acme", "Acme Ads")

	err := s.perf.Update(context.Background(), func(data domain.PerformanceData) error {
		data[c.ID] = []domain.PerformanceRecord{
			{ClientID: c.ID, AdName: "Ad1", Day: "02/05/2024", Spend: 100, PurchaseValue: 300, Impressions: 1000, ClicksAll: 50, ImageVideoPresentation: "summer.jpg (ID 1)"},
			{ClientID: c.ID, AdName: "Ad2", Day: "03/05/2024", Spend: 40},
		}
		return nil
	})
	require.NoError(t, err)

	base := "/api/v1/clients/" + c.ID + "/performance"
	w := s.do(t, httptest.NewRequest(http.MethodGet, base+"?from=2024-05-01&to=2024-05-07&filter=top10", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "top10", body["filter"])

	w = s.do(t, httptest.NewRequest(http.MethodGet, base+"?from=2024-05-07&to=2024-05-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, multipartRequest(t, base+"/link", map[string]string{"ad_name": "Ad2"}, part{"file", "creative.png", []byte("bytes")}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decodeBody(t, w)["recordsUpdated"])

	w = s.do(t, multipartRequest(t, base+"/link", map[string]string{"ad_name": "Nope"}, part{"file", "creative.png", []byte("bytes")}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, multipartRequest(t, base+"/link", nil, part{"file", "creative.png", []byte("bytes")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, multipartRequest(t, base+"/bulk-link?from=2024-05-01&to=2024-05-07", nil,
		part{"files", "summer.jpg", []byte("summer")},
		part{"files", "unused.jpg", []byte("unused")},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.EqualValues(t, 2, body["filesSupplied"])
	assert.EqualValues(t, 1, body["adsLinked"])

	w = s.do(t, multipartRequest(t, base+"/bulk-link", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/performance/summaries?from=2024-05-01&to=2024-05-07", nil))
	require.Equal(t, http.StatusOK, w.Code)
	summaries := decodeBody(t, w)["data"].([]any)
	require.Len(t, summaries, 1)
	assert.EqualValues(t, 140, summaries[0].(map[string]any)["totalSpend"])
}

func TestAnalyzeAndLookup(t *testing.T) {
	analyzerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.AnalysisResult{
			CreativeDescription: "A square product shot",
			OverallConclusion:   domain.OverallConclusion{Headline: "Ready to run"},
		})
	}))
	defer analyzerSrv.Close()

	s := newTestServer(t, analyzerSrv.URL)
	s.connect(t)
	c := s.createClient(t, "Acme", "")
	img := pngBytes(t, 64, 64)

	w := s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/creatives/analyze", map[string]string{"language": "en"}, part{"file", "product.png", img}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, "SQUARE_LIKE", body["creative"].(map[string]any)["format"])

	w = s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/creatives/analyze", map[string]string{"language": "en"}, part{"file", "product.png", img}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["cached"])

	w = s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/creatives/analyze", map[string]string{"format": "diagonal"}, part{"file", "product.png", img}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/clients/"+c.ID+"/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeBody(t, w)["count"])

	w = s.do(t, multipartRequest(t, "/api/v1/creatives/lookup", nil, part{"file", "product.png", img}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["found"])

	w = s.do(t, multipartRequest(t, "/api/v1/creatives/lookup", nil, part{"file", "other.png", img}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["found"])
}

func TestAnalyzeErrorResult(t *testing.T) {
	analyzerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.AnalysisResult{OverallConclusion: domain.OverallConclusion{Headline: "Error: could not analyze"}})
	}))
	defer analyzerSrv.Close()

	s := newTestServer(t, analyzerSrv.URL)
	s.connect(t)
	c := s.createClient(t, "Acme", "")

	w := s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/creatives/analyze", nil, part{"file", "a.png", pngBytes(t, 10, 20)}))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["failed"])
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, "")
	s.connect(t)
	c := s.createClient(t, "Acme", "Acme Ads")

	big := part{"file", "big.png", make([]byte, 2<<20)}
	paths := []string{
		"/api/v1/clients/" + c.ID + "/performance/link",
		"/api/v1/clients/" + c.ID + "/creatives/analyze",
		"/api/v1/creatives/lookup",
	}
	for _, path := range paths {
		w := s.do(t, multipartRequest(t, path, map[string]string{"ad_name": "Ad1"}, big))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, path)
		assert.Equal(t, "Upload too large", decodeBody(t, w)["error"], path)
	}

	w := s.do(t, multipartRequest(t, "/api/v1/imports", nil, part{"report", "big.xlsx", make([]byte, 2<<20)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/performance/bulk-link", nil, part{"files", "big.png", make([]byte, 2<<20)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMissingUploadIsBadRequest(t *testing.T) {
	s := newTestServer(t, "")
	s.connect(t)
	c := s.createClient(t, "Acme", "Acme Ads")

	w := s.do(t, multipartRequest(t, "/api/v1/clients/"+c.ID+"/performance/link", map[string]string{"ad_name": "Ad1"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing file", decodeBody(t, w)["error"])
}

func TestStorageWipe(t *testing.T) {
	s := newTestServer(t, "")
	s.connect(t)
	s.createClient(t, "Acme", "")

	w := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/storage/data", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil))
	assert.EqualValues(t, 0, decodeBody(t, w)["count"])

	w = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/storage/reset", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	w := s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
