package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camelgame/backend/internal/game"
	"github.com/camelgame/backend/internal/ws"
)

func SetupRoutes(hub *ws.Hub, co *game.Coordinator) http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", Health)
	r.Get("/ws", ws.Handler(hub, co))
	return r
}
