package metric

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordDropped(t *testing.T) {
	require := require.New(t)

	before := testutil.ToFloat64(droppedEventsTotal.WithLabelValues(DropTooLong))
	RecordDropped(DropTooLong)
	RecordDropped(DropTooLong)

	require.Equal(before+2, testutil.ToFloat64(droppedEventsTotal.WithLabelValues(DropTooLong)))
}

func TestRecordPersist(t *testing.T) {
	require := require.New(t)

	ok := testutil.ToFloat64(persistTotal.WithLabelValues(PersistResultOK))
	fail := testutil.ToFloat64(persistTotal.WithLabelValues(PersistResultFail))

	RecordPersist(nil, time.Millisecond)
	RecordPersist(errors.New("boom"), time.Millisecond)

	require.Equal(ok+1, testutil.ToFloat64(persistTotal.WithLabelValues(PersistResultOK)))
	require.Equal(fail+1, testutil.ToFloat64(persistTotal.WithLabelValues(PersistResultFail)))
}

func TestConnectionGauge(t *testing.T) {
	require := require.New(t)

	before := testutil.ToFloat64(wsActiveConnections)
	IncrementWSActiveConnections()
	require.Equal(before+1, testutil.ToFloat64(wsActiveConnections))
	DecrementWSActiveConnections()
	require.Equal(before, testutil.ToFloat64(wsActiveConnections))
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	require := require.New(t)

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/rooms/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/rooms/{id}", "202")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms/2", nil))

	require.Equal(before+2, testutil.ToFloat64(counter))
}
