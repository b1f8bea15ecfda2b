package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetmail/sheetmail/internal/logger"
)

func TestInitSentry_DisabledWithoutDSN(t *testing.T) {
	cleanup, err := InitSentry(SentryConfig{}, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, cleanup)
	cleanup()

	assert.False(t, IsEnabled())
	assert.NotPanics(t, func() {
		CaptureError(errors.New("boom"), map[string]any{"row": 2})
		CaptureMessage("finished with failures", sentry.LevelWarning)
	})
}

func TestInitSentry_InvalidDSN(t *testing.T) {
	_, err := InitSentry(SentryConfig{DSN: "not-a-dsn"}, logger.Nop())
	require.Error(t, err)
	assert.False(t, IsEnabled())
}

func TestRecover_RePanics(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		defer Recover(logger.Nop())
		panic("boom")
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordSent()
	m.RecordSent()
	m.RecordFailed()
	m.RecordSkipped()
	m.RecordRows(4)
	m.RecordRun(90*time.Second, "partial")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmailsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsFetched))
	assert.Equal(t, 90.0, testutil.ToFloat64(m.RunDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunStatus.WithLabelValues("partial")))

	m.RecordRun(time.Second, "success")
	assert.Equal(t, 1, testutil.CollectAndCount(m.LastRunStatus))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSent()
		m.RecordFailed()
		m.RecordSkipped()
		m.RecordRows(1)
		m.RecordRun(time.Second, "success")
	})
	assert.NoError(t, m.Push(context.Background(), "http://localhost:9091", "run"))
}

func TestMetrics_PushEmptyURL(t *testing.T) {
	assert.NoError(t, NewMetrics().Push(context.Background(), "", "run"))
}

func TestMetrics_Push(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.RecordSent()

	require.NoError(t, m.Push(context.Background(), srv.URL, "run-123"))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/sheetmail/run_id/run-123", path)
	assert.NotEmpty(t, body)
}

func TestMetrics_PushRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to push metrics"))
}
