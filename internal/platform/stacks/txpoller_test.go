package stacks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

func newTestPoller(t *testing.T, maxAttempts int, handler http.HandlerFunc) *TxPoller {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTxPoller(srv.URL, time.Millisecond, maxAttempts, time.Second, testLogger())
}

func txJSON(status string) map[string]any {
	return map[string]any{
		"tx_id":     "0xabc",
		"tx_status": status,
		"tx_result": map[string]string{"repr": "(ok true)"},
	}
}

func TestWaitForConfirmationSuccess(t *testing.T) {
	var calls atomic.Int32
	poller := newTestPoller(t, 10, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/tx/0xabc", r.URL.Path)
		status := "pending"
		if calls.Add(1) >= 3 {
			status = "success"
		}
		json.NewEncoder(w).Encode(txJSON(status))
	})

	rec, err := poller.WaitForConfirmation(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxSuccess, rec.Status)
	assert.Equal(t, "0xabc", rec.TxID)
	assert.Equal(t, "(ok true)", rec.Result)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForConfirmationAbort(t *testing.T) {
	poller := newTestPoller(t, 10, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(txJSON("abort_by_post_condition"))
	})

	rec, err := poller.WaitForConfirmation(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxAbortByPostCondition, rec.Status)
	assert.True(t, rec.Status.Terminal())
}

func TestWaitForConfirmationTimesOut(t *testing.T) {
	var calls atomic.Int32
	poller := newTestPoller(t, 5, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(txJSON("pending"))
	})

	_, err := poller.WaitForConfirmation(context.Background(), "0xabc")
	require.ErrorIs(t, err, domain.ErrTxTimeout)
	assert.Equal(t, int32(5), calls.Load(), "attempt budget is exact")
}

func TestWaitForConfirmationFetchErrorsConsumeAttempts(t *testing.T) {
	var calls atomic.Int32
	poller := newTestPoller(t, 4, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := poller.WaitForConfirmation(context.Background(), "0xabc")
	require.ErrorIs(t, err, domain.ErrTxTimeout)
	assert.Equal(t, int32(4), calls.Load())
}

func TestWaitForConfirmationTreats404AsPending(t *testing.T) {
	var calls atomic.Int32
	poller := newTestPoller(t, 10, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(txJSON("success"))
	})

	rec, err := poller.WaitForConfirmation(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, domain.TxSuccess, rec.Status)
}

func TestWaitForConfirmationHonorsContext(t *testing.T) {
	poller := newTestPoller(t, 1000, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(txJSON("pending"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := poller.WaitForConfirmation(ctx, "0xabc")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForConfirmationRequiresTxID(t *testing.T) {
	poller := NewTxPoller("http://unused", time.Millisecond, 1, time.Second, testLogger())
	_, err := poller.WaitForConfirmation(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrNoTxID)
}
