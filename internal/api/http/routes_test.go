package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/site-analytics/internal/enrich"
	"github.com/i474232898/site-analytics/internal/importer"
	"github.com/i474232898/site-analytics/internal/ingest"
	"github.com/i474232898/site-analytics/internal/metrics"
	"github.com/i474232898/site-analytics/internal/store"
	"github.com/i474232898/site-analytics/internal/weather"
)

type stubSource struct{}

func (stubSource) Name() string { return "stub" }

func (stubSource) FetchHourly(_ context.Context, _ weather.HistoricalQuery, fn func(weather.Observation) error) error {
	return fn(weather.Observation{Year: 2018, Month: 1, Day: 1, Hour: 0, Sample: weather.Sample{Temperature: 85}})
}

type testServer struct {
	app      *fiber.App
	pipeline *importer.Pipeline
	hub      *importer.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	cache := store.NewSessionCache()
	tracker := importer.NewTracker()
	hub := importer.NewHub()
	collector := metrics.New()
	pipeline := importer.NewPipeline(importer.Deps{
		Ingestor: ingest.New(zerolog.Nop()),
		Enricher: enrich.New(stubSource{}, zerolog.Nop()),
		Cache:    cache,
		Tracker:  tracker,
		Hub:      hub,
		Metrics:  collector,
		Log:      zerolog.Nop(),
		Timeout:  5 * time.Second,
	})
	t.Cleanup(pipeline.Close)

	RegisterRoutes(app, Deps{
		Sessions:  session.New(),
		Cache:     cache,
		Pipeline:  pipeline,
		Tracker:   tracker,
		Hub:       hub,
		Metrics:   collector,
		UploadDir: t.TempDir(),
		Log:       zerolog.Nop(),
	})
	return &testServer{app: app, pipeline: pipeline, hub: hub}
}

func (s *testServer) do(t *testing.T, req *http.Request, cookie *http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp, out
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func uploadRequest(t *testing.T, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

const twoDays = "2018010100,10,1,11,0\n2018010101,12,2,13,0\n2018010200,5,0,6,0\n"

func TestNoViewResponses(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/current", nil), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "none", body["result"])
	cookie := sessionCookie(t, resp)

	for _, path := range []string{"first", "last", "next", "previous"} {
		resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/"+path, nil), cookie)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Empty(t, body, path)
	}
}

func TestImportAndNavigate(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, uploadRequest(t, map[string]string{"stats.csv": twoDays}), nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	jobs, ok := body["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 1)
	cookie := sessionCookie(t, resp)

	s.pipeline.Wait()

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/current", nil), cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["totalDays"])
	assert.Equal(t, "2018-01-01", body["firstDay"])
	assert.Equal(t, "2018-01-02", body["lastDay"])
	page, ok := body["page"].([]any)
	require.True(t, ok)
	require.Len(t, page, 2)
	first := page[0].(map[string]any)
	assert.Equal(t, []any{float64(85), float64(0)}, first["tempData"])
	assert.Equal(t, []any{"01 Jan 2018 00", "01"}, first["labels"])

	for _, path := range []string{"next", "previous"} {
		_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/"+path, nil), cookie)
		assert.Equal(t, []any{}, body["page"], path)
		assert.Equal(t, "2018-01-01", body["windowStart"], path)
	}

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/last", nil), cookie)
	assert.Len(t, body["page"], 2)

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/imports", nil), cookie)
	assert.Equal(t, false, body["importing"])
	imported := body["jobs"].([]any)
	require.Len(t, imported, 1)
	assert.Equal(t, "succeeded", imported[0].(map[string]any)["state"])
}

func TestImportFailureIsReportedOnCurrent(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, uploadRequest(t, map[string]string{"bad.csv": "2018013200,1,1,1,0\n"}), nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	s.pipeline.Wait()

	_, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/current", nil), cookie)
	assert.Equal(t, "none", body["result"])
	imp, ok := body["import"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "failed", imp["state"])
	assert.Contains(t, imp["error"], "format error")
}

func TestImportRequiresFiles(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, uploadRequest(t, map[string]string{}), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, true, body["error"])

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	resp, _ = s.do(t, req, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, uploadRequest(t, map[string]string{"empty.csv": ""}), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "site_analytics_cached_views")
}

func TestMetricsCountFinishedImports(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, uploadRequest(t, map[string]string{"stats.csv": twoDays}), nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	s.pipeline.Wait()

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "site_analytics_imports_total")
	assert.Contains(t, string(body), `outcome="succeeded"`)
	assert.Contains(t, string(body), "site_analytics_ingested_lines_total 3")
}

func TestEventsStreamsImportNotifications(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/statistics/current", nil), nil)
	cookie := sessionCookie(t, resp)

	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for s.hub.Subscribers(cookie.Value) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		s.hub.Publish(importer.Event{Type: importer.EventEnriched, Session: cookie.Value, JobID: "job-1"})
		s.hub.Close()
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/statistics/events", nil)
	req.AddCookie(cookie)
	resp, err := s.app.Test(req, 10000)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "event: weather-data-enriched")
	assert.Contains(t, string(body), `"jobId":"job-1"`)
}
