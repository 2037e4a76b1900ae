package http

import (
	"encoding/json"
	"log"
	"net/http"

	"dilemma-arena/internal/app"
	"dilemma-arena/internal/catalog"
)

// API exposes the read-only reflection endpoints next to the websocket.
type API struct {
	manager *app.RoomManager
	catalog *catalog.Catalog
}

func NewAPI(manager *app.RoomManager, cat *catalog.Catalog) *API {
	return &API{manager: manager, catalog: cat}
}

// Register wires the REST routes onto mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/dilemas", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.catalog.All())
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.manager.Rooms())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}
