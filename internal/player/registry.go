package player

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Registry maps player identifiers to players. Players are created on first
// reference and only leave the registry when it is closed.
type Registry struct {
	engine Engine

	mu      sync.Mutex
	players map[string]Player
	closed  bool
}

// NewRegistry creates a registry whose players come from engine.
func NewRegistry(engine Engine) *Registry {
	return &Registry{
		engine:  engine,
		players: make(map[string]Player),
	}
}

// GetOrCreate returns the player for id, creating it with default state.
func (r *Registry) GetOrCreate(id string) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	if p, ok := r.players[id]; ok {
		return p, nil
	}

	p := r.engine.NewPlayer(id)
	r.players[id] = p
	log.Debug("Player created", "player", id, "variant", r.engine.Variant())
	return p, nil
}

// Lookup returns the player for id without creating it.
func (r *Registry) Lookup(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	return p, ok
}

// IDs lists the known player identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of known players.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Variant returns the variant of the registry's engine.
func (r *Registry) Variant() Variant {
	return r.engine.Variant()
}

// Close releases every player and closes the engine.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	players := r.players
	r.players = make(map[string]Player)
	r.mu.Unlock()

	for id, p := range players {
		if err := p.Release(); err != nil {
			log.Warn("Failed to release player", "player", id, "error", err)
		}
	}

	log.Debug("Player registry closed", "players", len(players))
	return r.engine.Close()
}

// Closed reports whether Close was called.
func (r *Registry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
