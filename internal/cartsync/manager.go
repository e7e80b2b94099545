package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/metrics"
)

const defaultInterval = 30 * time.Second

// ManagerParams configure the sync manager.
type ManagerParams struct {
	Reconciler *Reconciler
	Logger     *logger.Logger
	Metrics    *metrics.SyncMetrics
	Interval   time.Duration
}

// Manager owns one background sync task per user. Start is called on session
// activation, Stop on teardown. Pass failures are logged and swallowed; the
// next tick retries.
type Manager struct {
	reconciler *Reconciler
	logg       *logger.Logger
	metrics    *metrics.SyncMetrics
	interval   time.Duration

	mu    sync.Mutex
	tasks map[uuid.UUID]*task
	wg    sync.WaitGroup
}

type task struct {
	cancel context.CancelFunc
	passMu sync.Mutex

	mu       sync.Mutex
	deviceID string
}

// setDevice and device guard the tag: Start refreshes it while the loop
// goroutine reads it on every pass.
func (t *task) setDevice(id string) {
	t.mu.Lock()
	t.deviceID = id
	t.mu.Unlock()
}

func (t *task) device() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deviceID
}

// NewManager builds a sync manager.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Manager{
		reconciler: params.Reconciler,
		logg:       params.Logger,
		metrics:    params.Metrics,
		interval:   interval,
		tasks:      make(map[uuid.UUID]*task),
	}, nil
}

// Start launches the user's sync loop: one pass immediately, then one per
// interval. Starting an already-running user refreshes its device tag only.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID, deviceID string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("user id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.tasks[userID]; ok {
		existing.setDevice(deviceID)
		return nil
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tk := &task{cancel: cancel, deviceID: deviceID}
	m.tasks[userID] = tk

	m.wg.Add(1)
	go m.run(taskCtx, userID, tk)
	return nil
}

// Stop cancels the user's sync loop. Reports whether a loop was running.
func (m *Manager) Stop(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tk, ok := m.tasks[userID]
	if !ok {
		return false
	}
	tk.cancel()
	delete(m.tasks, userID)
	return true
}

// StopAll cancels every loop and waits for them to drain.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for userID, tk := range m.tasks {
		tk.cancel()
		delete(m.tasks, userID)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Running reports whether the user has an active sync loop.
func (m *Manager) Running(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[userID]
	return ok
}

func (m *Manager) run(ctx context.Context, userID uuid.UUID, tk *task) {
	defer m.wg.Done()

	ctx = m.logg.WithUserID(ctx, userID.String())
	m.runPass(ctx, userID, tk)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logg.Info(ctx, "cart sync loop stopped")
			return
		case <-ticker.C:
			m.runPass(ctx, userID, tk)
		}
	}
}

// runPass guarantees at most one in-flight pass per user: a pass still
// running when the next tick fires makes the tick a no-op.
func (m *Manager) runPass(ctx context.Context, userID uuid.UUID, tk *task) {
	if !tk.passMu.TryLock() {
		return
	}
	defer tk.passMu.Unlock()

	start := time.Now()
	outcome, err := m.reconciler.SyncPass(ctx, userID, tk.device())
	if m.metrics != nil {
		m.metrics.ObservePass(outcome, time.Since(start))
	}
	if err != nil {
		m.logg.Error(ctx, "cart sync pass failed", err)
	}
}
