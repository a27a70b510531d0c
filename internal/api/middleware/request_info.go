package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/facilityfinder/backend/pkg/errors"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestInfo is filled in by inner handlers and read by the outer access
// log and metrics middleware once the request completes.
type RequestInfo struct {
	ID       string
	Route    string
	ClientID string
}

type requestInfoKey struct{}

// RequestInfoFromContext returns the request's shared info, or nil
func RequestInfoFromContext(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// RequestInfoMiddleware assigns a request id and attaches RequestInfo
func RequestInfoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		info := &RequestInfo{ID: id}
		ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
		ctx = observability.WithRequestID(ctx, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Route records the matched ServeMux pattern for h
func Route(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info := RequestInfoFromContext(r.Context()); info != nil {
			info.Route = r.Pattern
		}
		h.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: apperrors.PublicMessage(err),
		Code:  string(apperrors.TypeOf(err)),
	})
}
