package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/i474232898/airline-rank-bot/internal/metrics"
	"github.com/i474232898/airline-rank-bot/internal/standings"
	"github.com/i474232898/airline-rank-bot/internal/store"
)

type fakeStandings struct {
	snapshots *store.MemoryStore
	output    string
	updateErr error
	triggers  []standings.Trigger
}

func (f *fakeStandings) Latest() (standings.Snapshot, error) { return f.snapshots.GetLatest() }

func (f *fakeStandings) History(from, to time.Time) ([]standings.Snapshot, error) {
	return f.snapshots.GetRange(from, to)
}

func (f *fakeStandings) OutputPath() string { return f.output }

func (f *fakeStandings) Update(_ context.Context, trigger standings.Trigger) (standings.Snapshot, error) {
	f.triggers = append(f.triggers, trigger)
	if f.updateErr != nil {
		return standings.Snapshot{}, f.updateErr
	}
	return standings.Snapshot{RunID: "run-api", Trigger: trigger}, nil
}

const testToken = "0123456789abcdef-token"

func newTestApp(t *testing.T) (*fiber.App, *fakeStandings) {
	t.Helper()
	svc := &fakeStandings{
		snapshots: store.NewMemoryStore(10, 0),
		output:    filepath.Join(t.TempDir(), "airline_table.png"),
	}
	app := fiber.New()
	RegisterRoutes(app, svc, Options{RunTimeout: time.Minute, APIToken: testToken})
	return app, svc
}

func doRequest(t *testing.T, app *fiber.App, method, target string) *http.Response {
	t.Helper()
	return doAuthRequest(t, app, method, target, "")
}

func doAuthRequest(t *testing.T, app *fiber.App, method, target, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestLatestNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/standings/latest")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestLatestReturnsSnapshot(t *testing.T) {
	app, svc := newTestApp(t)
	svc.snapshots.SaveSnapshot(standings.Snapshot{
		RunID:       "run-1",
		GeneratedAt: time.Now().UTC(),
		ReferenceID: 6076,
	})

	resp := doRequest(t, app, http.MethodGet, "/api/v1/standings/latest")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var got standings.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || got.ReferenceID != 6076 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestHistoryValidation(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []string{
		"/api/v1/standings/history",
		"/api/v1/standings/history?from=2026-01-02T00:00:00Z",
		"/api/v1/standings/history?from=yesterday&to=today",
		// to before from fails gtefield
		"/api/v1/standings/history?from=2026-01-02T00:00:00Z&to=2026-01-01T00:00:00Z",
	}
	for _, target := range cases {
		resp := doRequest(t, app, http.MethodGet, target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestHistoryRange(t *testing.T) {
	app, svc := newTestApp(t)
	base := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	for i := 0; i < 3; i++ {
		svc.snapshots.SaveSnapshot(standings.Snapshot{GeneratedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	from := base.Add(30 * time.Minute).Format(time.RFC3339)
	to := base.Add(3 * time.Hour).Format(time.RFC3339)
	resp := doRequest(t, app, http.MethodGet, "/api/v1/standings/history?from="+from+"&to="+to)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var body struct {
		Snapshots []standings.Snapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(body.Snapshots))
	}

	// Unix seconds are accepted too; an empty window is a 404.
	resp = doRequest(t, app, http.MethodGet, "/api/v1/standings/history?from=0&to=60")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestImage(t *testing.T) {
	app, svc := newTestApp(t)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/standings/image")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d before render, got %d", http.StatusNotFound, resp.StatusCode)
	}

	if err := os.WriteFile(svc.output, []byte("\x89PNG fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp = doRequest(t, app, http.MethodGet, "/api/v1/standings/image")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
}

func TestUpdate(t *testing.T) {
	app, svc := newTestApp(t)
	auth := "Bearer " + testToken

	resp := doAuthRequest(t, app, http.MethodPost, "/api/v1/standings/update", auth)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if len(svc.triggers) != 1 || svc.triggers[0] != standings.TriggerAPI {
		t.Fatalf("triggers = %v", svc.triggers)
	}

	svc.updateErr = standings.ErrUpdateInProgress
	resp = doAuthRequest(t, app, http.MethodPost, "/api/v1/standings/update", auth)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	svc.updateErr = errors.New("boom")
	resp = doAuthRequest(t, app, http.MethodPost, "/api/v1/standings/update", auth)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
}

func TestUpdateRequiresToken(t *testing.T) {
	app, svc := newTestApp(t)

	for _, auth := range []string{"", "Bearer wrong-token-0000000", testToken, "Basic " + testToken} {
		resp := doAuthRequest(t, app, http.MethodPost, "/api/v1/standings/update", auth)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("auth %q: expected status %d, got %d", auth, http.StatusUnauthorized, resp.StatusCode)
		}
	}
	if len(svc.triggers) != 0 {
		t.Fatalf("unauthorized requests ran updates: %v", svc.triggers)
	}
}

func TestUpdateDisabledWithoutToken(t *testing.T) {
	svc := &fakeStandings{snapshots: store.NewMemoryStore(10, 0)}
	app := fiber.New()
	RegisterRoutes(app, svc, Options{RunTimeout: time.Minute})

	resp := doAuthRequest(t, app, http.MethodPost, "/api/v1/standings/update", "Bearer anything")
	if resp.StatusCode == http.StatusOK {
		t.Fatal("update route should not be mounted without a token")
	}
	if len(svc.triggers) != 0 {
		t.Fatalf("triggers = %v", svc.triggers)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("airline_rank_bot", reg)
	m.FetchErrors.Inc()

	app := fiber.New()
	RegisterMetrics(app, reg)

	resp := doRequest(t, app, http.MethodGet, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "airline_rank_bot_fetch_errors_total 1") {
		t.Fatalf("metrics output missing fetch errors counter:\n%s", body)
	}
}
