package stacks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

const testSender = "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP"

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// uintResult renders (ok (uint n)) as the node API would.
func uintResult(n uint64) string {
	return fmt.Sprintf("0x0701%032x", n)
}

func newTestReader(t *testing.T, handler http.HandlerFunc) *ReadClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	contract := ContractID{Address: testSender, Name: "market-factory-v2"}
	return NewReadClient(srv.URL, contract, testSender, 5*time.Second, testLogger())
}

func TestReadClientPool(t *testing.T) {
	reader := newTestReader(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/contracts/call-read/"+testSender+"/market-factory-v2/get-pool", r.URL.Path)

		var req callReadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testSender, req.Sender)
		assert.Empty(t, req.Arguments)

		json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: uintResult(500_000_000)})
	})

	pool, err := reader.Pool(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), pool.Int64())
}

func TestReadClientBalancePassesPrincipal(t *testing.T) {
	reader := newTestReader(t, func(w http.ResponseWriter, r *http.Request) {
		var req callReadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Arguments, 1)

		v, err := DecodeHex(req.Arguments[0])
		require.NoError(t, err)
		assert.Equal(t, testSender, v.Str)

		json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: uintResult(15_000_000)})
	})

	bal, err := reader.YesBalance(context.Background(), 1, testSender)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000_000), bal.Int64())
}

func TestReadClientOutcome(t *testing.T) {
	cases := []struct {
		name   string
		result string
		want   domain.MarketOutcome
	}{
		// (some (string-ascii "yes")) wrapped in ok
		{"resolved yes", "0x070a0d00000003796573", domain.OutcomeYes},
		// (none) wrapped in ok
		{"unresolved", "0x0709", domain.OutcomeUnresolved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reader := newTestReader(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: tc.result})
			})
			out, err := reader.Outcome(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestReadClientRejectedCall(t *testing.T) {
	reader := newTestReader(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(callReadResponse{Okay: false, Cause: "UndefinedFunction"})
	})

	_, err := reader.Pool(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UndefinedFunction")
}

func TestSnapshotDegradesOnPartialFailure(t *testing.T) {
	reader := newTestReader(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/contracts/call-read/"+testSender+"/market-factory-v2/get-q-no":
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path[len(r.URL.Path)-11:] == "get-outcome":
			json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: "0x0709"})
		case r.URL.Path[len(r.URL.Path)-10:] == "get-status":
			json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: "0x0703"})
		default:
			json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: uintResult(1_000_000)})
		}
	})

	snap, err := reader.Snapshot(context.Background(), 1, "")
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Equal(t, int64(1_000_000), snap.Pool.Int64())
	assert.Equal(t, int64(1_000_000), snap.YesSupply.Int64())
	// Failed read keeps the zero fallback.
	assert.Zero(t, snap.NoSupply.Sign())
	assert.Equal(t, domain.OutcomeUnresolved, snap.Outcome)
	assert.Nil(t, snap.YesBalance, "no principal, no balance reads")
}
