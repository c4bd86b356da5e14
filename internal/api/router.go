package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes builds the HTTP handler for the whole API.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	// --- Sessions ---
	r.HandleFunc("/api/sessions", s.HandleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", s.HandleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.HandleDeleteSession).Methods(http.MethodDelete)

	// --- Navigation ---
	r.HandleFunc("/api/sessions/{id}/map", s.HandleGetMap).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/navigate", s.HandleNavigate).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/chapter", s.HandleNextChapter).Methods(http.MethodPost)

	// --- Events ---
	r.HandleFunc("/api/sessions/{id}/event", s.HandleResolveEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/port", s.HandleGetPort).Methods(http.MethodGet)

	// --- Battle ---
	r.HandleFunc("/api/sessions/{id}/battle", s.HandleStartBattle).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/battle", s.HandleGetBattle).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/battle/end", s.HandleEndBattle).Methods(http.MethodPost)

	// --- Save slots ---
	r.HandleFunc("/api/sessions/{id}/save", s.HandleSave).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/load", s.HandleLoad).Methods(http.MethodPost)

	// --- Real-time ---
	r.HandleFunc("/ws", s.HandleWs)

	// CORS wraps the router so preflight requests never reach route matching
	return corsMiddleware(r)
}

// corsMiddleware lets a browser client on another origin talk to the server.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
