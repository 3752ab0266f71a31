package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID tags every request with an id, reusing a well-formed incoming X-Request-ID,
// and logs the request once it has been served.
func WithRequestID(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		id := request.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		writer.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(request.Context(), requestIDKey{}, id)

		start := time.Now()
		next.ServeHTTP(writer, request.WithContext(ctx))

		logger.Info("handled request",
			slog.String("request_id", id),
			slog.String("method", request.Method),
			slog.String("path", request.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// RequestID returns the id assigned by WithRequestID, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
