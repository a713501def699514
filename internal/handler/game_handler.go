package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"stakepot/backend/internal/hub"
	"stakepot/backend/internal/registry"

	"github.com/gin-gonic/gin"
)

// Games is the process-wide game registry, wired up in main.
var Games *registry.Registry

// region --- DTOs ---

type CreateGameInput struct {
	Stake int64 `json:"stake" binding:"required" example:"10"`
}

type JoinGameInput struct {
	Amount int64 `json:"amount" binding:"required" example:"10"`
}

type ResolveGameInput struct {
	Outcome string `json:"outcome" binding:"required,oneof=win tie" example:"win"`
	Winner  string `json:"winner"`
	First   string `json:"first"`
	Second  string `json:"second"`
}

type ForfeitGameInput struct {
	Arbiter string `json:"arbiter" binding:"required"`
}

type GameResponse struct {
	ID           uint64    `json:"id" example:"1"`
	State        string    `json:"state" example:"created"`
	EntryFee     int64     `json:"entry_fee" example:"10"`
	Pot          int64     `json:"pot" example:"30"`
	Players      []string  `json:"players"`
	Active       bool      `json:"active"`
	LastActivity time.Time `json:"last_activity"`
}

func newGameResponse(g registry.Game, active bool) GameResponse {
	return GameResponse{
		ID:           g.ID,
		State:        g.State.String(),
		EntryFee:     g.EntryFee,
		Pot:          g.Pot,
		Players:      g.Players,
		Active:       active,
		LastActivity: g.LastActivity,
	}
}

// endregion

// gameID parses the :id path parameter.
func gameID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return 0, false
	}
	return id, true
}

// gameError maps a registry error onto an HTTP status.
func gameError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, registry.ErrInvalidStake), errors.Is(err, registry.ErrFeeMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, registry.ErrTimeoutExceeded):
		status = http.StatusGone
	case errors.Is(err, registry.ErrTransferFailed):
		status = http.StatusPaymentRequired
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// CreateGame godoc
// @Summary      Create a new game
// @Description  Opens a new wager game. The stake is escrowed from the caller's wallet and becomes the entry fee every joiner must match.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CreateGameInput true "Stake"
// @Success      201  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse "Stake must be positive"
// @Failure      402  {object}  ErrorResponse "Escrow failed"
// @Router       /games [post]
func CreateGame(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}

	var input CreateGameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := Games.Create(wallet.Address, input.Stake)
	if err != nil {
		gameError(c, err)
		return
	}

	g, err := Games.Snapshot(id)
	if err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGameResponse(g, Games.IsActive(id)))
}

// GetGameCount godoc
// @Summary      Get the number of games
// @Description  Returns the highest assigned game id. Every id from 1 up to the count refers to a game.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]uint64 "{"count": 3}"
// @Router       /games/count [get]
func GetGameCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": Games.Count()})
}

// GetGameByID godoc
// @Summary      Get a game by ID
// @Description  Returns the game's players, entry fee, pot, state and whether it can currently be resolved.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200  {object}  GameResponse
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Router       /games/{id} [get]
func GetGameByID(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}

	g, err := Games.Snapshot(id)
	if err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(g, Games.IsActive(id)))
}

// JoinGame godoc
// @Summary      Join a game
// @Description  Escrows the entry fee from the caller's wallet and appends them to the game. The amount must match the entry fee exactly.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int           true "Game ID"
// @Param        input body JoinGameInput true "Amount"
// @Success      200  {object}  GameResponse
// @Failure      400  {object}  ErrorResponse "Amount does not match entry fee"
// @Failure      402  {object}  ErrorResponse "Escrow failed"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Failure      409  {object}  ErrorResponse "Game is not open for joins"
// @Router       /games/{id}/join [post]
func JoinGame(c *gin.Context) {
	wallet, ok := callerWallet(c)
	if !ok {
		return
	}
	id, ok := gameID(c)
	if !ok {
		return
	}

	var input JoinGameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Games.Join(id, wallet.Address, input.Amount); err != nil {
		gameError(c, err)
		return
	}

	g, err := Games.Snapshot(id)
	if err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGameResponse(g, Games.IsActive(id)))
}

// ActivateGame godoc
// @Summary      Activate a game
// @Description  Starts the match. Irreversible: an active game can no longer be joined or refunded, only settled.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200  {object}  map[string]string "{"message": "Game activated"}"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Failure      409  {object}  ErrorResponse "Game is not in the created state"
// @Router       /games/{id}/activate [post]
func ActivateGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}

	if err := Games.Activate(id); err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game activated"})
}

// ResolveGame godoc
// @Summary      Resolve a game
// @Description  Settles an active game with a win (whole pot to the winner) or a tie (pot split by integer division; an odd unit is stranded). Fails once the resolution window has expired. The caller is not checked against the game's players.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Game ID"
// @Param        input body ResolveGameInput true "Outcome"
// @Success      200  {object}  map[string]string "{"message": "Game resolved"}"
// @Failure      400  {object}  ErrorResponse "Missing outcome addresses"
// @Failure      402  {object}  ErrorResponse "Payout failed"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Failure      409  {object}  ErrorResponse "Game is not active"
// @Failure      410  {object}  ErrorResponse "Resolution window has expired"
// @Router       /games/{id}/resolve [post]
func ResolveGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}

	var input ResolveGameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch input.Outcome {
	case "win":
		if input.Winner == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "winner is required for a win outcome"})
			return
		}
		err = Games.ResolveWin(id, input.Winner)
	case "tie":
		if input.First == "" || input.Second == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "first and second are required for a tie outcome"})
			return
		}
		err = Games.ResolveTie(id, input.First, input.Second)
	}
	if err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game resolved"})
}

// RefundGame godoc
// @Summary      Refund a game
// @Description  Returns the entry fee to every player in join order and closes the game. Only available before activation.
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Success      200  {object}  map[string]string "{"message": "Game refunded"}"
// @Failure      402  {object}  ErrorResponse "Payout failed"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Failure      409  {object}  ErrorResponse "Game has been activated"
// @Router       /games/{id}/refund [post]
func RefundGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}

	if err := Games.Refund(id); err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game refunded"})
}

// ForfeitGame godoc
// @Summary      Forfeit a game to an arbiter
// @Description  Hands the entire pot of an active game to the given arbiter address. This path has no timeout check and no caller check.
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Game ID"
// @Param        input body ForfeitGameInput true "Arbiter"
// @Success      200  {object}  map[string]string "{"message": "Game forfeited"}"
// @Failure      402  {object}  ErrorResponse "Payout failed"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Failure      409  {object}  ErrorResponse "Game is not active"
// @Router       /games/{id}/forfeit [post]
func ForfeitGame(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}

	var input ForfeitGameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := Games.ForfeitToArbiter(id, input.Arbiter); err != nil {
		gameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game forfeited"})
}

// StreamGameEvents godoc
// @Summary      Stream game events
// @Description  Server-sent events for one game: game.created, player.joined and game.ended with its result code.
// @Tags         games
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Game ID"
// @Failure      404  {object}  ErrorResponse "Game not found"
// @Router       /games/{id}/events [get]
func StreamGameEvents(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	if _, err := Games.Snapshot(id); err != nil {
		gameError(c, err)
		return
	}

	client := make(hub.Client, 16)
	hub.GlobalHub.Subscribe(id, client)
	defer hub.GlobalHub.Unsubscribe(id, client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// The step also watches the request context: gin only re-checks the
	// connection between steps, so a bare channel receive would park this
	// handler forever once the game stops emitting.
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, okCh := <-client:
			if !okCh {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-ctx.Done():
			return false
		}
	})
}
