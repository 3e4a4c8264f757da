package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/utils"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and reason. Server-side failures are
// logged and their details kept out of the response.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.StatusFor(err)

	var httpErr *apperr.HTTPError
	if errors.As(err, &httpErr) {
		writeJSON(w, status, ErrorResponse{Reason: http.StatusText(status), Message: httpErr.Message})
		return
	}

	kind := apperr.KindOf(err)
	resp := ErrorResponse{Reason: string(kind), Field: apperr.FieldOf(err)}
	var be *apperr.BookingError
	if errors.As(err, &be) {
		resp.Message = be.Message
	}

	if status >= http.StatusInternalServerError {
		if kind == apperr.KindConsistency {
			logger.Error("Consistency error", zap.Error(err))
		} else {
			logger.Error("Request failed", zap.Error(err))
			resp.Reason = string(apperr.KindInternal)
		}
		resp.Message = "internal error"
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("", "invalid JSON body")
	}
	return nil
}

// dateRange reads the optional from/to query parameters.
func dateRange(r *http.Request) (db.DateRange, error) {
	var rng db.DateRange
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &rng.From}, {"to", &rng.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		date, err := utils.NormalizeDate(v)
		if err != nil {
			return db.DateRange{}, apperr.Validation(p.name, "must be a date formatted YYYY-MM-DD")
		}
		*p.dst = date
	}
	if rng.From != "" && rng.To != "" && rng.To < rng.From {
		return db.DateRange{}, apperr.Validation("to", "must not be before from")
	}
	return rng, nil
}
