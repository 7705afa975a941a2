package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"speech-session-service/internal/api/ws"
	"speech-session-service/internal/app"
	"speech-session-service/web"
)

// NewRouter wires the browser client, probes and the streaming endpoint.
// sessions is usually ws.NewHandler(application.Model, application.WSConfig()).
func NewRouter(application *app.Application, sessions *ws.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/liveness", status(func() bool { return true }, "ok", "ok"))
		r.Get("/readiness", status(application.Ready, "ready", "not ready"))
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFileFS(w, req, web.Static, "index.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static)))

	r.Handle("/ws", sessions)

	return r
}

func status(check func() bool, up, down string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !check() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(down))
			return
		}
		_, _ = w.Write([]byte(up))
	}
}
