package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
)

const (
	// defaultSealCeiling bounds AwaitSeal. A timeout does not imply the
	// transaction failed; callers reconcile with a follow-up query.
	defaultSealCeiling = 30 * time.Second

	// defaultPollInterval is how often AwaitSeal re-checks the result.
	defaultPollInterval = 2 * time.Second

	httpTimeout = 15 * time.Second
)

// Authorizer is the signing capability handed back by the wallet-approval
// flow. The client never sees private key material; it only asks the
// authorizer to co-sign transaction envelopes.
type Authorizer interface {
	Address() domain.Address
	SignEnvelope(payload []byte) ([]byte, error)
}

// Config holds the access-node endpoint and the deployed contract addresses.
type Config struct {
	AccessNodeURL string
	ContractAddr  string // Ponder contract account
	TokenAddr     string // token contract account
	SealCeiling   time.Duration
	PollInterval  time.Duration
}

// Client talks to a ledger access node over its REST API. All operations are
// single-attempt; retry policy belongs to callers.
type Client struct {
	baseURL      string
	contractAddr string
	tokenAddr    string
	sealCeiling  time.Duration
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// New creates a ledger Client.
func New(cfg Config, logger *slog.Logger) *Client {
	sealCeiling := cfg.SealCeiling
	if sealCeiling <= 0 {
		sealCeiling = defaultSealCeiling
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Client{
		baseURL:      cfg.AccessNodeURL,
		contractAddr: cfg.ContractAddr,
		tokenAddr:    cfg.TokenAddr,
		sealCeiling:  sealCeiling,
		pollInterval: pollInterval,
		httpClient:   &http.Client{Timeout: httpTimeout},
		logger:       logger.With(slog.String("component", "ledger")),
	}
}

// --- wire types ---

type txRequest struct {
	Script            string            `json:"script"`    // base64
	Arguments         []string          `json:"arguments"` // base64 JSON values
	Proposer          string            `json:"proposer"`
	Authorizers       []string          `json:"authorizers"`
	EnvelopeSignature envelopeSignature `json:"envelope_signature"`
}

type envelopeSignature struct {
	Address   string `json:"address"`
	Signature string `json:"signature"` // base64
}

type txResponse struct {
	ID string `json:"id"`
}

type txResultResponse struct {
	Status       string    `json:"status"` // PENDING | EXECUTED | SEALED | EXPIRED
	ErrorMessage string    `json:"error_message"`
	Events       []TxEvent `json:"events"`
}

// TxEvent is one event emitted by a sealed transaction.
type TxEvent struct {
	Type   string            `json:"type"` // e.g. "A.f8d6....Ponder.PonderCreated"
	Values map[string]string `json:"values"`
}

type scriptRequest struct {
	Script    string   `json:"script"`    // base64
	Arguments []string `json:"arguments"` // base64 JSON values
}

// SealResult is the outcome of a sealed transaction.
type SealResult struct {
	TxID   string
	Status string
	Events []TxEvent
}

// PonderCreatedID scans the seal events for the contract's PonderCreated
// event and returns the ledger-assigned ID.
func (r SealResult) PonderCreatedID() (domain.PonderID, bool) {
	for _, ev := range r.Events {
		if !strings.HasSuffix(ev.Type, ".PonderCreated") {
			continue
		}
		id, err := strconv.ParseUint(ev.Values["id"], 10, 64)
		if err != nil {
			return 0, false
		}
		return domain.PonderID(id), true
	}
	return 0, false
}

// SubmitTransaction encodes the arguments, signs the envelope through the
// authorizer, and posts the transaction. It returns the ledger-assigned
// transaction ID without waiting for execution.
func (c *Client) SubmitTransaction(ctx context.Context, template string, args []Value, signer Authorizer) (string, error) {
	if signer == nil {
		return "", domain.NewLedgerError(domain.LedgerAuthorizationMissing, nil,
			"no signing capability attached")
	}

	encoded, err := encodeArgs(args)
	if err != nil {
		return "", err
	}

	script := c.render(template)
	req := txRequest{
		Script:      base64.StdEncoding.EncodeToString([]byte(script)),
		Proposer:    string(signer.Address()),
		Authorizers: []string{string(signer.Address())},
	}
	for _, arg := range encoded {
		req.Arguments = append(req.Arguments, base64.StdEncoding.EncodeToString(arg))
	}

	// The envelope covers the script and arguments exactly as submitted.
	payload, err := json.Marshal(struct {
		Script    string   `json:"script"`
		Arguments []string `json:"arguments"`
		Proposer  string   `json:"proposer"`
	}{req.Script, req.Arguments, req.Proposer})
	if err != nil {
		return "", domain.NewLedgerError(domain.LedgerSubmissionRejected, err, "encode envelope")
	}
	sig, err := signer.SignEnvelope(payload)
	if err != nil {
		return "", domain.NewLedgerError(domain.LedgerAuthorizationMissing, err, "sign envelope")
	}
	req.EnvelopeSignature = envelopeSignature{
		Address:   string(signer.Address()),
		Signature: base64.StdEncoding.EncodeToString(sig),
	}

	var resp txResponse
	if err := c.post(ctx, "/v1/transactions", req, &resp, domain.LedgerSubmissionRejected); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", domain.NewLedgerError(domain.LedgerSubmissionRejected, nil,
			"access node returned no transaction id")
	}

	c.logger.InfoContext(ctx, "transaction submitted",
		slog.String("tx_id", resp.ID),
		slog.String("proposer", string(signer.Address())),
	)
	return resp.ID, nil
}

// AwaitSeal polls the transaction result until it is sealed or the wait
// ceiling elapses. An execution error on a sealed transaction surfaces as
// ExecutionReverted with the ledger's reason verbatim.
func (c *Client) AwaitSeal(ctx context.Context, txID string) (SealResult, error) {
	deadline := time.NewTimer(c.sealCeiling)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return SealResult{}, domain.NewLedgerError(domain.LedgerTimeout, ctx.Err(),
				"wait for seal of %s", txID)
		case <-deadline.C:
			c.logger.WarnContext(ctx, "seal wait ceiling elapsed",
				slog.String("tx_id", txID),
				slog.Duration("ceiling", c.sealCeiling),
			)
			return SealResult{}, &domain.LedgerError{Code: domain.LedgerTimeout, TxID: txID,
				Reason: fmt.Sprintf("transaction %s not sealed within %s", txID, c.sealCeiling)}
		case <-ticker.C:
			var res txResultResponse
			err := c.get(ctx, "/v1/transaction_results/"+txID, &res)
			if err != nil {
				// A missing result is transient while the transaction
				// propagates; keep polling until the ceiling.
				if domain.LedgerCode(err) == domain.LedgerQueryFailed {
					continue
				}
				return SealResult{}, err
			}

			switch res.Status {
			case "SEALED":
				if res.ErrorMessage != "" {
					return SealResult{}, &domain.LedgerError{
						Code:   domain.LedgerExecutionReverted,
						Reason: res.ErrorMessage,
						TxID:   txID,
					}
				}
				return SealResult{TxID: txID, Status: res.Status, Events: res.Events}, nil
			case "EXPIRED":
				return SealResult{}, &domain.LedgerError{
					Code:   domain.LedgerExecutionReverted,
					Reason: "transaction expired before execution",
					TxID:   txID,
				}
			default:
				// PENDING / EXECUTED: not sealed yet.
			}
		}
	}
}

// ExecuteScript runs a read-only script and returns the decoded wire value.
func (c *Client) ExecuteScript(ctx context.Context, template string, args []Value) (cadenceValue, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return cadenceValue{}, err
	}

	req := scriptRequest{
		Script: base64.StdEncoding.EncodeToString([]byte(c.render(template))),
	}
	for _, arg := range encoded {
		req.Arguments = append(req.Arguments, base64.StdEncoding.EncodeToString(arg))
	}

	// Script results come back as a base64-encoded JSON value.
	var raw string
	if err := c.post(ctx, "/v1/scripts", req, &raw, domain.LedgerQueryFailed); err != nil {
		return cadenceValue{}, err
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return cadenceValue{}, domain.NewLedgerError(domain.LedgerQueryFailed, err, "decode script result")
	}
	var value cadenceValue
	if err := json.Unmarshal(decoded, &value); err != nil {
		return cadenceValue{}, domain.NewLedgerError(domain.LedgerQueryFailed, err, "parse script result")
	}
	return value, nil
}

// --- HTTP plumbing ---

func (c *Client) post(ctx context.Context, path string, body any, out any, failCode domain.LedgerErrorCode) error {
	data, err := json.Marshal(body)
	if err != nil {
		return domain.NewLedgerError(failCode, err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return domain.NewLedgerError(failCode, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewLedgerError(domain.LedgerNetworkUnavailable, err, "POST %s", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewLedgerError(domain.LedgerNetworkUnavailable, err, "read response")
	}

	if resp.StatusCode >= 500 {
		return domain.NewLedgerError(domain.LedgerNetworkUnavailable, nil,
			"POST %s: access node returned %d", path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return domain.NewLedgerError(failCode, nil,
			"POST %s: %d: %s", path, resp.StatusCode, truncate(respBody, 300))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.NewLedgerError(failCode, err, "decode response")
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.NewLedgerError(domain.LedgerQueryFailed, err, "build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewLedgerError(domain.LedgerNetworkUnavailable, err, "GET %s", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewLedgerError(domain.LedgerNetworkUnavailable, err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return domain.NewLedgerError(domain.LedgerQueryFailed, nil,
			"GET %s: %d: %s", path, resp.StatusCode, truncate(respBody, 300))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewLedgerError(domain.LedgerQueryFailed, err, "decode response")
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
