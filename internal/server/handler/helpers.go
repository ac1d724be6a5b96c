package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/flowponder/ponderd/internal/domain"
)

// writeJSON marshals v and writes it with the given status. If marshaling
// fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the client core's error vocabulary onto HTTP status
// codes. Validation problems and the in-flight guard are client errors;
// ledger trouble maps by failure class. Unrecognized errors become a
// generic 500 so internal detail never leaks.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Reason,
			"field": verr.Field,
		})
		return
	}

	var cerr *domain.ConcurrentOperationError
	if errors.As(err, &cerr) {
		writeError(w, http.StatusConflict, cerr.Error())
		return
	}

	var aerr *domain.AuthError
	if errors.As(err, &aerr) {
		status := http.StatusUnauthorized
		if aerr.Code == domain.AuthTimeout {
			status = http.StatusGatewayTimeout
		}
		writeError(w, status, aerr.Error())
		return
	}

	if errors.Is(err, domain.ErrNotAuthenticated) {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var lerr *domain.LedgerError
	if errors.As(err, &lerr) {
		switch lerr.Code {
		case domain.LedgerExecutionReverted:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": lerr.Reason,
				"code":  string(lerr.Code),
				"txId":  lerr.TxID,
			})
		case domain.LedgerTimeout:
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{
				"error": "confirmation timed out; outcome unknown",
				"code":  string(lerr.Code),
				"txId":  lerr.TxID,
			})
		case domain.LedgerNetworkUnavailable:
			writeError(w, http.StatusBadGateway, "ledger unreachable")
		case domain.LedgerSubmissionRejected:
			writeError(w, http.StatusBadRequest, lerr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "ledger operation failed")
		}
		return
	}

	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseListOpts extracts standard pagination parameters from the query
// string. Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// ponderIDParam parses the {id} path segment as a PonderID.
func ponderIDParam(r *http.Request) (domain.PonderID, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", "invalid ponder id %q", raw)
	}
	return domain.PonderID(id), nil
}

// addressParam parses the {address} path segment.
func addressParam(r *http.Request) (domain.Address, error) {
	addr := domain.Address(r.PathValue("address"))
	if !addr.Valid() {
		return "", domain.NewValidationError("address", "invalid account address %q", addr)
	}
	return addr, nil
}
