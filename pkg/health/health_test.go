package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) (int, probeResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp probeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestService_HealthyUntilFirstRun(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("backend", time.Second, func(_ context.Context) error {
		return errors.New("down")
	})

	// The check has not run yet, so the probe still reports ok.
	code, resp := probe(t, s.ReadyEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["backend"])
}

func TestService_FailingCheckFlipsProbe(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("backend", time.Second, func(_ context.Context) error {
		return errors.New("connection refused")
	})

	s.runAll(context.Background())
	code, resp := probe(t, s.ReadyEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "connection refused", resp.Checks["backend"])
}

func TestService_RecoveredCheck(t *testing.T) {
	var fail bool
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("backend", time.Second, func(_ context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	})

	fail = true
	s.runAll(context.Background())
	code, _ := probe(t, s.ReadyEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, code)

	fail = false
	s.runAll(context.Background())
	code, resp := probe(t, s.ReadyEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestService_ReadyGateOverridesChecks(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("backend", time.Second, func(_ context.Context) error { return nil })
	s.runAll(context.Background())

	s.SetReady(false)
	code, resp := probe(t, s.ReadyEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", resp.Status)
	// The check itself is still healthy; only the gate is down.
	assert.Equal(t, "ok", resp.Checks["backend"])
}

func TestService_LivenessIndependentOfReadyGate(t *testing.T) {
	s := New()
	s.SetReady(false)
	s.AddLivenessCheck("goroutines", time.Second, func(_ context.Context) error { return nil })
	s.runAll(context.Background())

	code, resp := probe(t, s.LiveEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestService_StartAndStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New()
	s.AddLivenessCheck("once", time.Second, func(_ context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background(), time.Hour)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
	s.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(_ context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	require.NoError(t, PingCheck(stubPinger{})(context.Background()))

	boom := errors.New("boom")
	assert.ErrorIs(t, PingCheck(stubPinger{err: boom})(context.Background()), boom)
}
