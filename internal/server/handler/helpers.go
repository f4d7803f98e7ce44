package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// HeaderActor carries the identity performing a request. Authorization of
// privileged operations (resolve, cancel, fee collection) is the domain's
// creator check; the transport only forwards the claimed identity.
const HeaderActor = "X-Actor"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
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

// writeDomainError maps a service error onto an HTTP status code using the
// sentinel classes defined in the domain package, writes it as JSON, and
// returns the status so callers can decide how loudly to log. Unrecognized
// errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) int {
	var status int
	msg := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidFeeRate),
		errors.Is(err, domain.ErrInvalidEndTime),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrMarketIDTooLong),
		errors.Is(err, domain.ErrBetTooLow),
		errors.Is(err, domain.ErrBetTooHigh):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMarketNotActive),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrMarketExpired),
		errors.Is(err, domain.ErrMarketNotEnded),
		errors.Is(err, domain.ErrMarketHasPositions),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrPoolInactive),
		errors.Is(err, domain.ErrLockHeld):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientShares),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrInsufficientVaultBalance),
		errors.Is(err, domain.ErrNotWinningPosition),
		errors.Is(err, domain.ErrNoWinningShares),
		errors.Is(err, domain.ErrNoWinningsToClaim),
		errors.Is(err, domain.ErrArithmeticOverflow):
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
		msg = "internal server error"
	}

	writeError(w, status, msg)
	return status
}

// decodeJSON parses the request body into dst and reports a 400 on failure.
// Returns false when the handler should stop.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// actor extracts the requesting identity from the X-Actor header.
func actor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderActor))
}

// requireActor extracts the actor and reports a 400 if the header is absent.
func requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	a := actor(r)
	if a == "" {
		writeError(w, http.StatusBadRequest, "missing "+HeaderActor+" header")
		return "", false
	}
	return a, true
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
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

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
