package channel

import (
	"github.com/audioplayers/audioplayers/internal/player"
	"github.com/charmbracelet/log"
)

// EventOnError is sent when a player's source fails to load.
const EventOnError = "audio.onError"

// Emitter sends events to the host.
type Emitter interface {
	Emit(name string, args map[string]any) error
}

// ErrorEvents returns a player error listener that forwards failures to the
// host as audio.onError events.
func ErrorEvents(em Emitter) player.ErrorFunc {
	return func(playerID string, err error) {
		args := map[string]any{
			"playerId": playerID,
			"value":    err.Error(),
			"code":     string(CodeLoadFailed),
		}
		if err := em.Emit(EventOnError, args); err != nil {
			log.Warn("Failed to emit event", "event", EventOnError, "player", playerID, "error", err)
		}
	}
}
