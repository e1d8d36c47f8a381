package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ElderCare360/apperr"
	"ElderCare360/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLookup(t *testing.T, handler http.HandlerFunc) (*MedicationLookup, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	cfg := config.RxNavConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, RateLimit: 100, MaxEntries: 20}
	return NewMedicationLookup(cfg, zap.NewNop(), nil), &calls
}

func TestSuggest(t *testing.T) {
	l, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/REST/approximateTerm.json", r.URL.Path)
		assert.Equal(t, "losar", r.URL.Query().Get("term"))
		assert.Equal(t, "20", r.URL.Query().Get("maxEntries"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"approximateGroup":{"inputTerm":"losar","candidate":[
			{"rxcui":"52175","score":"8.4","name":"losartan"},
			{"rxcui":"52175","score":"8.4","name":"Losartan"},
			{"rxcui":"979480","score":"7.1"},
			{"rxcui":"203160","score":"7.0","name":"losartan potassium"}]}}`))
	})

	names, err := l.Suggest(context.Background(), " losar ")
	require.NoError(t, err)
	assert.Equal(t, []string{"losartan", "losartan potassium"}, names)
}

func TestSuggest_ShortTermSkipsRequest(t *testing.T) {
	l, calls := newLookup(t, func(w http.ResponseWriter, r *http.Request) {})

	names, err := l.Suggest(context.Background(), "lo")
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Zero(t, calls.Load())
}

func TestSuggest_NoCandidates(t *testing.T) {
	l, _ := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"approximateGroup":{"inputTerm":"zzzz"}}`))
	})

	names, err := l.Suggest(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSuggest_FailuresOpenTheBreaker(t *testing.T) {
	l, calls := newLookup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := l.Suggest(context.Background(), "aspirin")
		assert.ErrorIs(t, err, apperr.ErrLookupUnavailable)
	}
	require.Equal(t, int32(5), calls.Load())

	_, err := l.Suggest(context.Background(), "aspirin")
	assert.ErrorIs(t, err, apperr.ErrLookupUnavailable)
	assert.Equal(t, int32(5), calls.Load())
}
