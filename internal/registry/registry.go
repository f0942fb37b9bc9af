// Package registry tracks live push connections per user and fans
// broadcasts out to every open socket a user has. It is the only owner of
// the connection map; all mutation goes through its methods.
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is the transport seam between the registry and a websocket.
// Ping performs a full ping/pong round trip; a nil return means the peer
// answered the heartbeat.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

type connState struct {
	alive bool
}

// Registry is safe for interleaved Register/Broadcast/sweep calls.
type Registry struct {
	mu    sync.Mutex
	conns map[string]map[Conn]*connState

	interval time.Duration
	logger   *zap.Logger

	// onCount receives the total live connection count after every
	// mutation; nil means no metrics wiring.
	onCount func(total int)
}

// Option configures a Registry.
type Option func(*Registry)

// WithConnGauge wires a callback observing the live connection total.
func WithConnGauge(fn func(total int)) Option {
	return func(r *Registry) { r.onCount = fn }
}

// WithSweepInterval overrides the default 30s liveness sweep interval.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.interval = d }
}

func New(logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		conns:    make(map[string]map[Conn]*connState),
		interval: 30 * time.Second,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a connection to the user's set with liveness=true.
// The caller owns the read loop and calls Unregister on disconnect.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[Conn]*connState)
		r.conns[userID] = set
	}
	set[c] = &connState{alive: true}
	total := r.totalLocked()
	r.mu.Unlock()

	r.notifyCount(total)
	r.logger.Info("connection registered", zap.String("user_id", userID))
}

// Unregister removes a connection and prunes the user entry when its set
// empties, so abandoned users do not leave dangling empty sets behind.
func (r *Registry) Unregister(userID string, c Conn) {
	r.mu.Lock()
	set, ok := r.conns[userID]
	if ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.conns, userID)
		}
	}
	total := r.totalLocked()
	r.mu.Unlock()

	if ok {
		r.notifyCount(total)
		r.logger.Info("connection removed", zap.String("user_id", userID))
	}
}

// markAlive flips the liveness flag back after a successful heartbeat.
func (r *Registry) markAlive(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.conns {
		if state, ok := set[c]; ok {
			state.alive = true
			return
		}
	}
}

// Broadcast serializes msg once and sends it to every connection in the
// user's set. A user with no connections is a silent no-op: offline users
// rely on the persisted and email channels. Send failures deregister the
// failed connection and never affect the user's other sockets.
func (r *Registry) Broadcast(ctx context.Context, userID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("broadcast marshal failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	r.mu.Lock()
	set := r.conns[userID]
	targets := make([]Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	for _, c := range targets {
		if err := c.Send(ctx, data); err != nil {
			r.logger.Warn("push send failed, dropping connection",
				zap.String("user_id", userID), zap.Error(err))
			_ = c.Close()
			r.Unregister(userID, c)
		}
	}
	r.logger.Debug("notification pushed", zap.String("user_id", userID), zap.Int("sockets", len(targets)))
}

// Run sweeps the registry every interval until ctx is cancelled. Each
// sweep closes connections that failed to answer the previous heartbeat,
// then marks the survivors not-alive and pings them; the pong flips the
// flag back before the next tick. Two missed heartbeats therefore kill a
// connection even when the transport never reports a close.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("liveness sweep started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("liveness sweep stopping")
			r.closeAll()
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Registry) sweep(ctx context.Context) {
	type probe struct {
		userID string
		conn   Conn
	}

	r.mu.Lock()
	var dead, probes []probe
	for userID, set := range r.conns {
		for c, state := range set {
			if !state.alive {
				dead = append(dead, probe{userID, c})
				continue
			}
			state.alive = false
			probes = append(probes, probe{userID, c})
		}
	}
	r.mu.Unlock()

	for _, d := range dead {
		r.logger.Info("reaping dead connection", zap.String("user_id", d.userID))
		_ = d.conn.Close()
		r.Unregister(d.userID, d.conn)
	}

	for _, p := range probes {
		go func(p probe) {
			pingCtx, cancel := context.WithTimeout(ctx, r.interval/2)
			defer cancel()
			if err := p.conn.Ping(pingCtx); err == nil {
				r.markAlive(p.conn)
			}
		}(p)
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	for _, set := range r.conns {
		for c := range set {
			_ = c.Close()
		}
	}
	r.conns = make(map[string]map[Conn]*connState)
	r.mu.Unlock()
	r.notifyCount(0)
}

// Connections returns the current number of live connections.
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalLocked()
}

func (r *Registry) totalLocked() int {
	total := 0
	for _, set := range r.conns {
		total += len(set)
	}
	return total
}

func (r *Registry) notifyCount(total int) {
	if r.onCount != nil {
		r.onCount(total)
	}
}
