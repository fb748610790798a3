package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/siteflow/pkg/metrics"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/protocol"
	"github.com/dukex/siteflow/pkg/steps"
	"github.com/jonboulle/clockwork"
)

// DefaultApprovalPollInterval is the period of the shared approval sweep.
const DefaultApprovalPollInterval = time.Minute

// ApprovalMonitor parks approval steps until their request leaves pending.
// A waiter re-reads its request when NotifyApproval names it, on every sweep
// of the shared ticker, and once more when its due time passes.
type ApprovalMonitor struct {
	logger   *slog.Logger
	store    protocol.ApprovalStore
	clock    clockwork.Clock
	interval time.Duration
	metrics  *metrics.Metrics

	mu      sync.Mutex
	waiters map[string]map[chan struct{}]struct{}
	count   int
}

func NewApprovalMonitor(logger *slog.Logger, store protocol.ApprovalStore, clock clockwork.Clock, interval time.Duration, m *metrics.Metrics) *ApprovalMonitor {
	if interval <= 0 {
		interval = DefaultApprovalPollInterval
	}

	return &ApprovalMonitor{
		logger:   logger.With("module", "approval_monitor"),
		store:    store,
		clock:    clock,
		interval: interval,
		metrics:  m,
		waiters:  make(map[string]map[chan struct{}]struct{}),
	}
}

var _ steps.ApprovalWaiter = (*ApprovalMonitor)(nil)

// Wait returns the request once it is decided, or steps.ErrApprovalDue when
// dueAt passes first.
func (m *ApprovalMonitor) Wait(ctx context.Context, approvalID string, dueAt time.Time) (*models.ApprovalRequest, error) {
	wake := m.register(approvalID)
	defer m.unregister(approvalID, wake)

	timer := m.clock.NewTimer(max(dueAt.Sub(m.clock.Now()), 0))
	defer timer.Stop()

	for {
		request, err := m.store.Get(ctx, approvalID)
		if err != nil {
			return nil, err
		}

		if !request.IsPending() {
			return request, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		case <-timer.Chan():
			request, err := m.store.Get(ctx, approvalID)
			if err != nil {
				return nil, err
			}

			if !request.IsPending() {
				return request, nil
			}

			m.logger.InfoContext(ctx, "Approval due without decision", "approval_id", approvalID, "approver", request.Approver)

			return nil, steps.ErrApprovalDue
		}
	}
}

// Notify wakes the waiters of approvalID.
func (m *ApprovalMonitor) Notify(approvalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for wake := range m.waiters[approvalID] {
		signal(wake)
	}
}

// Run sweeps every waiter on each tick until ctx is done.
func (m *ApprovalMonitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.sweep()
		}
	}
}

// Waiting returns the number of parked waiters.
func (m *ApprovalMonitor) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.count
}

func (m *ApprovalMonitor) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, set := range m.waiters {
		for wake := range set {
			signal(wake)
		}
	}
}

func (m *ApprovalMonitor) register(approvalID string) chan struct{} {
	wake := make(chan struct{}, 1)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiters[approvalID] == nil {
		m.waiters[approvalID] = make(map[chan struct{}]struct{})
	}

	m.waiters[approvalID][wake] = struct{}{}
	m.count++
	m.metrics.ApprovalWaiters(m.count)

	return wake
}

func (m *ApprovalMonitor) unregister(approvalID string, wake chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.waiters[approvalID], wake)

	if len(m.waiters[approvalID]) == 0 {
		delete(m.waiters, approvalID)
	}

	m.count--
	m.metrics.ApprovalWaiters(m.count)
}

func signal(wake chan struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}
