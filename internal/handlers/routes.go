package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the application routes. AuthMiddleware is applied by the
// caller so route logging can walk the bare router.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes (no auth required)
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/login", h.Login).Methods("POST")
	auth.HandleFunc("/logout", h.Logout).Methods("POST")
	auth.HandleFunc("/check", h.CheckAuth).Methods("GET")

	media := r.PathPrefix("/media/{id}").Subrouter()
	media.HandleFunc("/file", h.ServeMedia).Methods("GET", "HEAD")
	media.HandleFunc("/qualities", h.GetQualities).Methods("GET")
	media.HandleFunc("/stream/master.m3u8", h.MasterPlaylist).Methods("GET")
	media.HandleFunc("/stream/{quality}/index.m3u8", h.VariantPlaylist).Methods("GET")
	media.HandleFunc("/stream/{quality}/{segment:[0-9]+}.ts", h.Segment).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transcode/status", h.TranscodeStatus).Methods("GET")
	api.HandleFunc("/transcode/clear", h.ClearTranscodeCache).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "not found", http.StatusNotFound)
	})

	return r
}
