package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

type staticSigner struct{ addr domain.Address }

func (s staticSigner) Address() domain.Address               { return s.addr }
func (s staticSigner) SignEnvelope(p []byte) ([]byte, error) { return []byte("sig"), nil }

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		AccessNodeURL: srv.URL,
		ContractAddr:  "0xf8d6e0586b0a20c7",
		TokenAddr:     "0x7e60df042a9c0868",
		SealCeiling:   400 * time.Millisecond,
		PollInterval:  50 * time.Millisecond,
	}, slog.Default())
}

func TestSubmitTransactionRequiresSigner(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no network call expected without a signer")
	}))

	_, err := c.SubmitTransaction(context.Background(), txFreeVote, nil, nil)
	require.Error(t, err)
	assert.Equal(t, domain.LedgerAuthorizationMissing, domain.LedgerCode(err))
}

func TestSubmitTransactionPostsSignedEnvelope(t *testing.T) {
	var got txRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transactions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(txResponse{ID: "tx-123"})
	}))

	signer := staticSigner{addr: "0xf8d6e0586b0a20c7"}
	txID, err := c.SendFreeVote(context.Background(), signer, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "tx-123", txID)

	assert.Equal(t, "0xf8d6e0586b0a20c7", got.Proposer)
	require.Len(t, got.Arguments, 2)

	// First argument is the ponder ID as a decimal string.
	raw, err := base64.StdEncoding.DecodeString(got.Arguments[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UInt64","value":"7"}`, string(raw))

	// The script must have its contract placeholders substituted.
	script, err := base64.StdEncoding.DecodeString(got.Script)
	require.NoError(t, err)
	assert.Contains(t, string(script), "import Ponder from 0xf8d6e0586b0a20c7")
	assert.NotContains(t, string(script), "0xPONDER")
}

func TestAwaitSealReturnsRevertReasonVerbatim(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(txResultResponse{
			Status:       "SEALED",
			ErrorMessage: "insufficient vault balance",
		})
	}))

	_, err := c.AwaitSeal(context.Background(), "tx-err")
	require.Error(t, err)

	le, ok := err.(*domain.LedgerError)
	require.True(t, ok)
	assert.Equal(t, domain.LedgerExecutionReverted, le.Code)
	assert.Equal(t, "insufficient vault balance", le.Reason)
}

func TestAwaitSealTimesOutWhileUnsealed(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(txResultResponse{Status: "PENDING"})
	}))

	start := time.Now()
	_, err := c.AwaitSeal(context.Background(), "tx-slow")
	require.Error(t, err)
	assert.Equal(t, domain.LedgerTimeout, domain.LedgerCode(err))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestAwaitSealSucceeds(t *testing.T) {
	polls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "PENDING"
		if polls >= 2 {
			status = "SEALED"
		}
		_ = json.NewEncoder(w).Encode(txResultResponse{Status: status})
	}))

	res, err := c.AwaitSeal(context.Background(), "tx-ok")
	require.NoError(t, err)
	assert.Equal(t, "tx-ok", res.TxID)
	assert.Equal(t, "SEALED", res.Status)
}

func TestExecuteScriptDecodesBase64Result(t *testing.T) {
	balance := `{"type":"UFix64","value":"3.25000000"}`
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/scripts", r.URL.Path)
		_ = json.NewEncoder(w).Encode(base64.StdEncoding.EncodeToString([]byte(balance)))
	}))

	got, err := c.GetBalance(context.Background(), "0xf8d6e0586b0a20c7")
	require.NoError(t, err)
	assert.Equal(t, domain.MustAmount("3.25"), got)
}

func TestQueryFailureIsNormalized(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad script", http.StatusBadRequest)
	}))

	_, err := c.ListActivePonders(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.LedgerQueryFailed, domain.LedgerCode(err))
}
