package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounters(t *testing.T) {
	m := New()
	m.LineGenerated("hot")
	m.LineGenerated("hot")
	m.LineRelaxed("hot")
	m.Unsatisfiable("cold")
	m.DrawsImported(context.Background(), "g1", 12)
	m.AnalyticsServed("g1")
	m.ObserveGenerate("hot", 3*time.Millisecond)
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.linesGenerated.WithLabelValues("hot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.linesRelaxed.WithLabelValues("hot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unsatisfiable.WithLabelValues("cold")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.drawsImported.WithLabelValues("g1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analytics.WithLabelValues("g1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))
}

func TestInstrumentAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/v1/games", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Handle("/metrics", m.Handler())

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/games")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/games", "418")))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "lottery_insight_http_requests_total")
}
