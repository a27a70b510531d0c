package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithError maps err onto its status code. Causes are logged, never
// written to the client.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	respondWithJSON(w, status, ErrorResponse{
		Error: apperrors.PublicMessage(err),
		Code:  string(apperrors.TypeOf(err)),
	})
}
