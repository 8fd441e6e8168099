package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveAnswer(t *testing.T) {
	r := NewRecorder()

	r.ObserveAnswer("matched", 1, 200*time.Millisecond)
	r.ObserveAnswer("matched", 3, time.Second)
	r.ObserveAnswer("no_match", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.AnswersTotal.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AnswersTotal.WithLabelValues("no_match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GenerationAttempts.WithLabelValues("3")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.GenerationAttempts.WithLabelValues("0")))
}

func TestRecorder_ObserveIngest(t *testing.T) {
	r := NewRecorder()

	r.ObserveIngest(5, 2, false)
	r.ObserveIngest(1, 7, true)

	assert.Equal(t, 6.0, testutil.ToFloat64(r.ChunksIngested.WithLabelValues("added")))
	assert.Equal(t, 9.0, testutil.ToFloat64(r.ChunksIngested.WithLabelValues("existing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.IngestFailures))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveAnswer("low_confidence", 0, time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `localrag_answer_total{outcome="low_confidence"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewRecorder_Independent(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.ObserveIngest(3, 0, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChunksIngested.WithLabelValues("added")))
}
