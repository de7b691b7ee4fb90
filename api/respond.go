package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/Matcry12/careervr/pkg/repository"
)

// maxBody caps request bodies; the largest legitimate one is a job catalog.
const maxBody = 1 << 20

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, errorResponse{Error: http.StatusText(status), Reason: reason}, status)
}

// statusFor maps a failed result to its HTTP status.
func statusFor(res repository.Result) int {
	switch res.Kind {
	case repository.KindValidation:
		return http.StatusBadRequest
	case repository.KindForbidden:
		return http.StatusForbidden
	case repository.KindNotFound:
		return http.StatusNotFound
	case repository.KindWritesDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// writeResult writes body with status when res succeeded, or the result
// itself with the mapped status when it did not.
func writeResult(w http.ResponseWriter, res repository.Result, body any, status int) {
	if !res.OK {
		writeJSON(w, res, statusFor(res))
		return
	}
	if body == nil {
		body = res
	}
	writeJSON(w, body, status)
}

// decodeJSON reads the request body into v. An empty body leaves v alone
// when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
