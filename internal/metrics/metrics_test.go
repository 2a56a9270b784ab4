package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, lookupsTotal)
	require.NotNil(t, recordsTotal)
	require.NotNil(t, batchesTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObservers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(lookupsTotal.WithLabelValues("ok"))
	ObserveLookup("ok", 2*time.Second)
	require.InDelta(t, before+1, testutil.ToFloat64(lookupsTotal.WithLabelValues("ok")), 0.001)

	before = testutil.ToFloat64(recordsTotal.WithLabelValues("Aktif"))
	ObserveRecord("Aktif")
	ObserveRecord("Aktif")
	require.InDelta(t, before+2, testutil.ToFloat64(recordsTotal.WithLabelValues("Aktif")), 0.001)

	before = testutil.ToFloat64(fieldSourcesTotal.WithLabelValues("rating", "none"))
	ObserveField("rating", "")
	require.InDelta(t, before+1, testutil.ToFloat64(fieldSourcesTotal.WithLabelValues("rating", "none")), 0.001)

	before = testutil.ToFloat64(batchesTotal.WithLabelValues("error"))
	ObserveBatch("error")
	require.InDelta(t, before+1, testutil.ToFloat64(batchesTotal.WithLabelValues("error")), 0.001)

	SetPending(42)
	require.InDelta(t, 42, testutil.ToFloat64(pendingItems), 0.001)

	IncActiveWorkers()
	active := testutil.ToFloat64(activeWorkers)
	DecActiveWorkers()
	require.InDelta(t, active-1, testutil.ToFloat64(activeWorkers), 0.001)
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/probe-ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/probe-missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418"))

	for _, path := range []string{"/probe-ok", "/probe-missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.InDelta(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")), 0.001)
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}
