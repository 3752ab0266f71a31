package routes

import (
	"log/slog"
	"net/http"

	"github.com/terabiome/cloudprofile/internal/handler"
)

// Router wraps http.ServeMux and provides route setup
type Router struct {
	*http.ServeMux
}

// V1Handler returns a handler for v1 API routes
func (router *Router) V1Handler(profileHandler *handler.Profile) http.Handler {
	mux := http.NewServeMux()

	profileMux := http.NewServeMux()
	profileMux.HandleFunc("GET /generate", profileHandler.Generate)
	profileMux.HandleFunc("POST /generate", profileHandler.Generate)
	profileMux.HandleFunc("GET /parameters", profileHandler.Parameters)
	mux.Handle("/profile/", http.StripPrefix("/profile", profileMux))

	return mux
}

// SetupMux creates and configures the main router
func SetupMux(profileHandler *handler.Profile, logger *slog.Logger) http.Handler {
	router := Router{http.NewServeMux()}

	router.ServeMux.Handle("/api/v1/", http.StripPrefix("/api/v1", router.V1Handler(profileHandler)))

	router.ServeMux.HandleFunc("/heartbeat", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
		writer.Write([]byte("i have not exploded"))
	})

	return handler.WithRequestID(router, logger)
}
