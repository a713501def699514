package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stakepot/backend/internal/hub"
	"stakepot/backend/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTreasury approves every transfer; these tests exercise the HTTP
// layer and status mapping, not fund accounting.
type stubTreasury struct{}

func (stubTreasury) Escrow(uint64, string, int64) error     { return nil }
func (stubTreasury) Payout(uint64, []registry.Credit) error { return nil }

func setupGameRouter(opts ...registry.Option) *gin.Engine {
	gin.SetMode(gin.TestMode)
	Games = registry.New(stubTreasury{}, opts...)

	router := gin.New()
	games := router.Group("/games")
	{
		games.GET("/count", GetGameCount)
		games.GET("/:id", GetGameByID)
		games.POST("/:id/activate", ActivateGame)
		games.POST("/:id/resolve", ResolveGame)
		games.POST("/:id/refund", RefundGame)
		games.POST("/:id/forfeit", ForfeitGame)
		games.GET("/:id/events", StreamGameEvents)
	}
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetGameByID(t *testing.T) {
	router := setupGameRouter()
	id, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/games/1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp GameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "created", resp.State)
	assert.Equal(t, int64(10), resp.Pot)
	assert.Equal(t, []string{"addr-creator"}, resp.Players)
	assert.False(t, resp.Active)
}

func TestGetGameByIDNotFound(t *testing.T) {
	router := setupGameRouter()

	w := doJSON(router, http.MethodGet, "/games/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGameByIDInvalid(t *testing.T) {
	router := setupGameRouter()

	w := doJSON(router, http.MethodGet, "/games/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameCount(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)
	_, err = Games.Create("addr-creator", 20)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/games/count", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count": 2}`, w.Body.String())
}

func TestActivateAndResolveWin(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/games/1/activate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/games/1/resolve", ResolveGameInput{Outcome: "win", Winner: "addr-creator"})
	assert.Equal(t, http.StatusOK, w.Code)

	// second settlement of any kind conflicts
	w = doJSON(router, http.MethodPost, "/games/1/resolve", ResolveGameInput{Outcome: "win", Winner: "addr-creator"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(router, http.MethodPost, "/games/1/forfeit", ForfeitGameInput{Arbiter: "addr-arbiter"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResolveValidation(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)
	require.NoError(t, Games.Activate(1))

	// unknown outcome is rejected by binding
	w := doJSON(router, http.MethodPost, "/games/1/resolve", gin.H{"outcome": "draw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/games/1/resolve", gin.H{"outcome": "win"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/games/1/resolve", gin.H{"outcome": "tie", "first": "addr-a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveAfterTimeout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	router := setupGameRouter(registry.WithClock(func() time.Time { return clock() }))

	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)
	require.NoError(t, Games.Activate(1))

	expired := now.Add(registry.DefaultResolveTimeout + time.Second)
	clock = func() time.Time { return expired }

	w := doJSON(router, http.MethodPost, "/games/1/resolve", ResolveGameInput{Outcome: "win", Winner: "addr-creator"})
	assert.Equal(t, http.StatusGone, w.Code)

	// the forfeit path has no timeout check and still succeeds
	w = doJSON(router, http.MethodPost, "/games/1/forfeit", ForfeitGameInput{Arbiter: "addr-arbiter"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefundAfterActivateConflicts(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/games/1/activate", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/games/1/refund", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// sseRecorder satisfies http.CloseNotifier, which gin's Stream requires
// of the response writer.
type sseRecorder struct {
	*httptest.ResponseRecorder
	closeCh chan bool
}

func (r *sseRecorder) CloseNotify() <-chan bool { return r.closeCh }

func TestStreamStopsWhenClientDisconnects(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/games/1/events", nil).WithContext(ctx)
	w := &sseRecorder{ResponseRecorder: httptest.NewRecorder(), closeCh: make(chan bool)}

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return hub.GlobalHub.Subscribers(1) == 1
	}, time.Second, 5*time.Millisecond, "stream never subscribed")

	// disconnect from a game that emits nothing further: the handler must
	// still unwind and release its hub subscription
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler still running after disconnect")
	}
	assert.Equal(t, 0, hub.GlobalHub.Subscribers(1))
}

func TestRefundBeforeActivate(t *testing.T) {
	router := setupGameRouter()
	_, err := Games.Create("addr-creator", 10)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/games/1/refund", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp GameResponse
	w = doJSON(router, http.MethodGet, "/games/1", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abandoned", resp.State)
	assert.Equal(t, int64(0), resp.Pot)
}
