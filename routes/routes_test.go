package routes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/handlers"
	"github.com/Dosada05/swiss-system/metrics"
	"github.com/Dosada05/swiss-system/middleware"
	"github.com/Dosada05/swiss-system/models"
	"github.com/Dosada05/swiss-system/repositories"
	"github.com/Dosada05/swiss-system/services"
)

// inOrder pairs roster neighbours so round 1 is predictable.
type inOrder struct{}

func (inOrder) GetName() string { return "InOrder" }

func (inOrder) GeneratePairings(ctx context.Context, p brackets.GeneratePairingsParams) ([]models.Pairing, error) {
	var pairs []models.Pairing
	for i := 0; i+1 < len(p.Players); i += 2 {
		pairs = append(pairs, models.Pairing{Board: i/2 + 1, First: p.Players[i].ID, Second: p.Players[i+1].ID})
	}
	return pairs, nil
}

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewTournamentMetrics(reg)

	repo := repositories.NewMemoryTournamentRepository()
	persister := services.NewPersister(logger, m, services.PersistTarget{Name: "memory", Repo: repo})
	hub := brackets.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	gens := brackets.Generators{FirstRound: inOrder{}, Swiss: brackets.NewSwissGenerator()}
	svc := services.NewTournamentService(services.TournamentServiceConfig{DefaultRoundMin: 2, DefaultRoundMax: 3},
		repo, persister, gens, hub, m, logger)
	t.Cleanup(svc.Close)

	router := SetupRoutes(Deps{
		Tournaments:    handlers.NewTournamentHandler(svc, logger),
		WebSocket:      handlers.NewWebSocketHandler(hub, nil, logger),
		Auth:           middleware.NewAuth(secret, logger),
		Gatherer:       reg,
		AllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv}
	if secret != "" {
		token, err := middleware.IssueToken(secret, "td", middleware.RoleOrganizer, time.Hour)
		require.NoError(t, err)
		ts.token = token
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]json.RawMessage{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestTournamentLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")

	status, _ := ts.do(t, http.MethodPost, "/tournaments", `{"id":"club","names":["A","B","C"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body := ts.do(t, http.MethodPost, "/tournaments", `{"id":"club","names":["A","B","C","D"],"round_min":2,"round_max":3}`)
	require.Equal(t, http.StatusCreated, status)
	var tour services.TournamentView
	require.NoError(t, json.Unmarshal(body["tournament"], &tour))
	assert.Equal(t, 2, tour.TotalRounds)

	status, body = ts.do(t, http.MethodGet, "/tournaments/club/pairings", "")
	require.Equal(t, http.StatusOK, status)
	var pairs []models.Pairing
	require.NoError(t, json.Unmarshal(body["pairings"], &pairs))
	require.Len(t, pairs, 2)

	status, _ = ts.do(t, http.MethodPost, "/tournaments/club/results", `{"results":{"0":"1-0"}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPost, "/tournaments/club/results", `{"results":{"0":"1-0","1":"draw"}}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodPut, "/tournaments/club/setup", `{"names":["X","Y"]}`)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ts.do(t, http.MethodGet, "/tournaments/club/pairings", "")
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodPost, "/tournaments/club/results", `{"results":{"0":"½-½","1":"="}}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body["tournament"], &tour))
	assert.Equal(t, models.StatusCompleted, tour.Status)

	status, body = ts.do(t, http.MethodGet, "/tournaments/club/standings", "")
	require.Equal(t, http.StatusOK, status)
	var standings []models.Standing
	require.NoError(t, json.Unmarshal(body["standings"], &standings))
	require.Len(t, standings, 4)
	assert.Equal(t, "A", standings[0].Name)
	assert.Equal(t, 0.15, standings[0].TieBreak)

	resp, err := http.Get(ts.URL + "/tournaments/club/standings?format=text")
	require.NoError(t, err)
	text, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(text), "Place  Name  Score  Buchholz")

	status, body = ts.do(t, http.MethodGet, "/tournaments", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["club"]`, string(body["tournaments"]))

	status, _ = ts.do(t, http.MethodGet, "/tournaments/nobody", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodDelete, "/tournaments/club", "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestOrganizerGate(t *testing.T) {
	ts := newTestServer(t, "secret")

	anonymous := &testServer{Server: ts.Server}
	status, _ := anonymous.do(t, http.MethodPost, "/tournaments", `{"names":["A","B"]}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodPost, "/tournaments", `{"id":"gated","names":["A","B"]}`)
	assert.Equal(t, http.StatusCreated, status)

	// Reads stay public.
	status, _ = anonymous.do(t, http.MethodGet, "/tournaments/gated/standings", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ := ts.do(t, http.MethodPost, "/tournaments", `{"id":"m","names":["A","B"]}`)
	require.Equal(t, http.StatusCreated, status)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "swiss_tournament_setups_total 1")
}
