package http

import (
	"encoding/json"
	"net/http"

	"quizroom-service/internal/app"
)

type healthResponse struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
}

// HealthHandler reports liveness with the number of active rooms and connections.
func HealthHandler(service *app.GameService, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:      "ok",
			Rooms:       service.ActiveRooms(),
			Connections: hub.Connections(),
		})
	}
}

// NewMux routes the websocket gateway and health endpoint.
func NewMux(ws *WSHandler, service *app.GameService) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler(service, ws.hub))
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}
