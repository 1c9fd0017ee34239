package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

// ErrCollectionRequired is returned by Attach for a query without a collection.
var ErrCollectionRequired = errors.New("collection name is required")

// MirrorState is a point-in-time view of a Mirror.
// Records is nil until the first result set arrives.
type MirrorState struct {
	Records []models.Record
	Loading bool
	Err     error
}

// Mirror keeps the result set of one owner-scoped live query in memory.
// At most one registration is active; results from a superseded registration are dropped.
type Mirror struct {
	source db.LiveSource
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	state   MirrorState
	stream  db.SnapshotStream
	cancel  context.CancelFunc
	changes chan struct{}
}

// NewMirror creates a detached Mirror in the loading state.
func NewMirror(source db.LiveSource, logger *zap.Logger) *Mirror {
	return &Mirror{
		source:  source,
		logger:  logger,
		state:   MirrorState{Loading: true},
		changes: make(chan struct{}, 1),
	}
}

// Attach replaces any current registration with one for q. An empty owner yields an
// empty, settled result without querying. A failure to open the listener is reported
// through State, not returned.
func (m *Mirror) Attach(ctx context.Context, q models.OwnerScopedQuery) error {
	if q.Collection == "" {
		return ErrCollectionRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()

	if q.OwnerID == "" {
		m.state = MirrorState{Records: []models.Record{}}
		m.notifyLocked()
		return nil
	}

	m.state = MirrorState{Loading: true}
	listenCtx, cancel := context.WithCancel(ctx)
	stream, err := m.source.Listen(listenCtx, q)
	if err != nil {
		cancel()
		m.state = MirrorState{Err: err}
		m.logger.Warn("Live query could not be opened",
			zap.String("collection", q.Collection),
			zap.String("ownerID", q.OwnerID),
			zap.Error(err))
		m.notifyLocked()
		return nil
	}
	m.stream = stream
	m.cancel = cancel
	m.notifyLocked()

	go m.run(m.gen, q, stream)
	return nil
}

// Detach ends the current registration and resets the mirror to its initial state.
func (m *Mirror) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	m.state = MirrorState{Loading: true}
	m.notifyLocked()
}

// State returns the current state.
func (m *Mirror) State() MirrorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Changes signals state changes. Signals coalesce; read State after each one.
func (m *Mirror) Changes() <-chan struct{} {
	return m.changes
}

func (m *Mirror) run(gen uint64, q models.OwnerScopedQuery, stream db.SnapshotStream) {
	for {
		records, err := stream.Next()

		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.state = MirrorState{Records: m.state.Records, Err: err}
			m.releaseLocked()
			m.notifyLocked()
			m.mu.Unlock()
			m.logger.Warn("Live query stopped",
				zap.String("collection", q.Collection),
				zap.String("ownerID", q.OwnerID),
				zap.Error(err))
			return
		}
		if records == nil {
			records = []models.Record{}
		}
		m.state = MirrorState{Records: records}
		m.notifyLocked()
		m.mu.Unlock()
	}
}

// releaseLocked stops the active listener and invalidates its generation.
func (m *Mirror) releaseLocked() {
	m.gen++
	if m.stream != nil {
		m.stream.Stop()
		m.stream = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Mirror) notifyLocked() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}
