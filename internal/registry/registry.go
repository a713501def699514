// Package registry holds the wager game lifecycle: entry, pot
// accumulation, resolution, payout and timeout-based forfeiture.
// Fund movement is delegated to a Treasury; everything else lives here.
package registry

import (
	"fmt"
	"sync"
	"time"
)

// DefaultResolveTimeout is the inactivity window after which a game can
// no longer be resolved with a win or tie.
const DefaultResolveTimeout = 300 * time.Second

// State is the lifecycle state of a game. A game id that was never
// assigned has no state at all: existence is a registry lookup, not a
// zero-value sentinel.
type State uint8

const (
	// StateCreated means the game is open for joins and can still be
	// refunded.
	StateCreated State = iota + 1
	// StateActive means the match has started. Joins and refunds are
	// permanently foreclosed; only a settlement can end the game.
	StateActive
	// StateAbandoned is terminal. The pot has been disbursed (or
	// forfeited) and no further transition is possible.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Game is a single wager game. Players is append-only in join order;
// index 0 is always the creator. Pot is the single source of truth for
// the amount still payable.
type Game struct {
	ID           uint64
	Players      []string
	EntryFee     int64
	Pot          int64
	State        State
	LastActivity time.Time
}

// Credit is one payout leg of a settlement.
type Credit struct {
	To     string
	Amount int64
}

// Treasury moves funds on behalf of the registry. Escrow draws the
// amount from the payer; Payout credits every leg or none of them.
// Either call failing aborts the enclosing registry operation.
type Treasury interface {
	Escrow(gameID uint64, from string, amount int64) error
	Payout(gameID uint64, credits []Credit) error
}

// Registry maps game ids to games and serializes every operation, so
// each call is a single indivisible state transition.
type Registry struct {
	mu       sync.Mutex
	games    map[uint64]*Game
	lastID   uint64
	treasury Treasury
	emitter  Emitter
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout overrides the resolution window.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// WithEmitter installs a lifecycle event sink.
func WithEmitter(e Emitter) Option {
	return func(r *Registry) { r.emitter = e }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry backed by the given treasury.
func New(t Treasury, opts ...Option) *Registry {
	r := &Registry{
		games:    make(map[uint64]*Game),
		treasury: t,
		emitter:  nopEmitter{},
		timeout:  DefaultResolveTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// emitAfter runs a collected event emission. Deferred before the mutex
// is taken, it fires after the deferred unlock, so emitters never run
// on the registry's critical section.
func emitAfter(emit *func()) {
	if *emit != nil {
		(*emit)()
	}
}

// Create escrows the creator's stake and opens a new game. The stake
// becomes the entry fee every joiner must match. Returns the assigned
// game id; ids start at 1 and are never reused.
func (r *Registry) Create(creator string, stake int64) (uint64, error) {
	if stake <= 0 {
		return 0, ErrInvalidStake
	}

	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.lastID + 1
	if err := r.treasury.Escrow(id, creator, stake); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := r.now()
	r.lastID = id
	r.games[id] = &Game{
		ID:           id,
		Players:      []string{creator},
		EntryFee:     stake,
		Pot:          stake,
		State:        StateCreated,
		LastActivity: now,
	}

	emit = func() { r.emitter.GameCreated(id, creator, now) }
	return id, nil
}

// Join escrows amount from joiner and appends them to the game. The
// amount must match the entry fee exactly. Only games still in the
// created state accept joins.
func (r *Registry) Join(id uint64, joiner string, amount int64) error {
	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return ErrGameNotFound
	}
	if g.State != StateCreated {
		return fmt.Errorf("%w: cannot join a %s game", ErrInvalidState, g.State)
	}
	if amount != g.EntryFee {
		return ErrFeeMismatch
	}

	if err := r.treasury.Escrow(id, joiner, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := r.now()
	g.Players = append(g.Players, joiner)
	g.Pot += amount
	g.LastActivity = now

	emit = func() { r.emitter.PlayerJoined(id, joiner, now) }
	return nil
}

// Activate starts the match. Irreversible: once active, the refund path
// is permanently unavailable, so a creator cannot collect entry fees and
// then renege after play has started.
func (r *Registry) Activate(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return ErrGameNotFound
	}
	if g.State != StateCreated {
		return fmt.Errorf("%w: cannot activate a %s game", ErrInvalidState, g.State)
	}

	g.State = StateActive
	return nil
}

// ResolveWin pays the entire pot to winner and closes the game. Fails
// once the inactivity window has elapsed. The winner address is taken at
// face value: callers are not checked against the player list.
func (r *Registry) ResolveWin(id uint64, winner string) error {
	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.resolvable(id)
	if err != nil {
		return err
	}

	paid := g.Pot
	if err := r.treasury.Payout(id, []Credit{{To: winner, Amount: paid}}); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	emit = r.settle(g, ResultWin, []string{winner}, paid)
	return nil
}

// ResolveTie splits the pot between first and second by integer
// division. An odd pot strands one unit in escrow: nothing pays it out.
// Same timeout rule as ResolveWin.
func (r *Registry) ResolveTie(id uint64, first, second string) error {
	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.resolvable(id)
	if err != nil {
		return err
	}

	half := g.Pot / 2
	credits := []Credit{{To: first, Amount: half}, {To: second, Amount: half}}
	if err := r.treasury.Payout(id, credits); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	emit = r.settle(g, ResultTie, []string{first, second}, half*2)
	return nil
}

// Refund returns the entry fee to every player in join order and closes
// the game. Only available before activation. Equal refunds are safe
// because the entry fee is uniform.
func (r *Registry) Refund(id uint64) error {
	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return ErrGameNotFound
	}
	if g.State != StateCreated {
		return fmt.Errorf("%w: cannot refund a %s game", ErrInvalidState, g.State)
	}

	credits := make([]Credit, len(g.Players))
	for i, p := range g.Players {
		credits[i] = Credit{To: p, Amount: g.EntryFee}
	}
	if err := r.treasury.Payout(id, credits); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	emit = r.settle(g, ResultRefund, append([]string(nil), g.Players...), g.EntryFee*int64(len(g.Players)))
	return nil
}

// ForfeitToArbiter hands the whole pot of an active game to arbiter.
// Note: there is no timeout check on this path, unlike ResolveWin and
// ResolveTie, so it is callable the moment a game becomes active.
func (r *Registry) ForfeitToArbiter(id uint64, arbiter string) error {
	var emit func()
	defer emitAfter(&emit)
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return ErrGameNotFound
	}
	if g.State != StateActive {
		return fmt.Errorf("%w: cannot forfeit a %s game", ErrInvalidState, g.State)
	}

	paid := g.Pot
	if err := r.treasury.Payout(id, []Credit{{To: arbiter, Amount: paid}}); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	emit = r.settle(g, ResultForfeit, []string{arbiter}, paid)
	return nil
}

// resolvable checks the shared preconditions of ResolveWin/ResolveTie:
// the game exists, is active, and is still inside the timeout window.
// Caller must hold r.mu.
func (r *Registry) resolvable(id uint64) (*Game, error) {
	g, ok := r.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	if g.State != StateActive {
		return nil, fmt.Errorf("%w: cannot resolve a %s game", ErrInvalidState, g.State)
	}
	if r.now().Sub(g.LastActivity) > r.timeout {
		return nil, ErrTimeoutExceeded
	}
	return g, nil
}

// settle moves g to its terminal state and returns the deferred
// game-ended emission. The pot is zeroed exactly once; abandoned games
// never pay out again. Caller must hold r.mu.
func (r *Registry) settle(g *Game, result Result, recipients []string, paid int64) func() {
	now := r.now()
	g.Pot = 0
	g.State = StateAbandoned
	g.LastActivity = now
	id := g.ID
	return func() { r.emitter.GameEnded(id, result, recipients, paid, now) }
}

// Count reports the highest assigned game id. Ids are assigned from 1
// with no gaps, so every id in [1, Count()] refers to a game.
func (r *Registry) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastID
}

// PlayerCount returns the number of players in a game, creator included.
func (r *Registry) PlayerCount(id uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return 0, ErrGameNotFound
	}
	return len(g.Players), nil
}

// Pot returns the current escrowed balance of a game. Zero once settled.
func (r *Registry) Pot(id uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return 0, ErrGameNotFound
	}
	return g.Pot, nil
}

// IsActive reports whether a game could currently be resolved: it
// exists, is active, and the timeout window has not elapsed.
func (r *Registry) IsActive(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return false
	}
	return g.State == StateActive && r.now().Sub(g.LastActivity) <= r.timeout
}

// Snapshot returns a copy of the game record for read-only use.
func (r *Registry) Snapshot(id uint64) (Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return Game{}, ErrGameNotFound
	}
	out := *g
	out.Players = append([]string(nil), g.Players...)
	return out, nil
}
