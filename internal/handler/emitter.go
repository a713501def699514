package handler

import (
	"log"
	"strings"
	"time"

	"stakepot/backend/internal/database"
	"stakepot/backend/internal/hub"
	"stakepot/backend/internal/models"
	"stakepot/backend/internal/registry"

	"github.com/gin-gonic/gin"
)

// hubEmitter bridges registry lifecycle events to SSE subscribers and
// records terminal outcomes as settlement rows.
type hubEmitter struct{}

// NewHubEmitter returns the emitter wired into the registry in main.
func NewHubEmitter() registry.Emitter {
	return hubEmitter{}
}

func (hubEmitter) GameCreated(id uint64, creator string, at time.Time) {
	hub.GlobalHub.Broadcast(id, hub.Event{
		Type: "game.created",
		Payload: gin.H{
			"game_id": id,
			"creator": creator,
			"at":      at,
		},
	})
}

func (hubEmitter) PlayerJoined(id uint64, player string, at time.Time) {
	hub.GlobalHub.Broadcast(id, hub.Event{
		Type: "player.joined",
		Payload: gin.H{
			"game_id": id,
			"player":  player,
			"at":      at,
		},
	})
}

func (hubEmitter) GameEnded(id uint64, result registry.Result, recipients []string, paid int64, at time.Time) {
	hub.GlobalHub.Broadcast(id, hub.Event{
		Type: "game.ended",
		Payload: gin.H{
			"game_id":    id,
			"result":     result,
			"recipients": recipients,
			"paid":       paid,
			"at":         at,
		},
	})

	settlement := models.Settlement{
		GameID:     id,
		Result:     string(result),
		Recipients: strings.Join(recipients, ","),
		Paid:       paid,
	}
	if err := database.DB.Create(&settlement).Error; err != nil {
		// The game itself is already settled; the history row is best effort.
		log.Printf("Failed to record settlement for game %d: %v", id, err)
	}
}
