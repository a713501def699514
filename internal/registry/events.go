package registry

import "time"

// Result is the outcome code carried by a game-ended event.
type Result string

const (
	ResultWin     Result = "win"
	ResultTie     Result = "tie"
	ResultRefund  Result = "refund"
	ResultForfeit Result = "forfeit"
)

// Emitter receives lifecycle notifications after a mutation has been
// fully applied and the registry lock released, so implementations are
// free to read back into the registry and to block on slow sinks.
type Emitter interface {
	GameCreated(id uint64, creator string, at time.Time)
	PlayerJoined(id uint64, player string, at time.Time)
	GameEnded(id uint64, result Result, recipients []string, paid int64, at time.Time)
}

// nopEmitter is the default when no emitter is configured.
type nopEmitter struct{}

func (nopEmitter) GameCreated(uint64, string, time.Time)                {}
func (nopEmitter) PlayerJoined(uint64, string, time.Time)               {}
func (nopEmitter) GameEnded(uint64, Result, []string, int64, time.Time) {}
