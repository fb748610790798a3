// Package workflow runs workflow instances: it owns the definition registry,
// the live instances and the approval monitor of one engine.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/dukex/siteflow/pkg/eventbus"
	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/metrics"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/otelhelper"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/protocol"
	"github.com/dukex/siteflow/pkg/registry"
	"github.com/dukex/siteflow/pkg/steps"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

// recoverBatch bounds how many unfinished instances Recover loads.
const recoverBatch = 10000

// UserIDVariable is the instance variable holding the user that started it.
const UserIDVariable = "userId"

// Config wires an engine to its collaborators. Instances is required.
type Config struct {
	Registry      *registry.Registry
	Instances     persistence.InstanceRepository
	Approvals     protocol.ApprovalStore
	Actions       protocol.ActionExecutor
	Notifications protocol.NotificationDispatcher
	Publisher     eventbus.EventPublisher
	Clock         clockwork.Clock
	Tracer        trace.Tracer
	Metrics       *metrics.Metrics

	ApprovalPollInterval time.Duration
	HistoryPageSize      int
}

type Engine struct {
	logger    *slog.Logger
	registry  *registry.Registry
	instances persistence.InstanceRepository
	approvals protocol.ApprovalStore
	publisher eventbus.EventPublisher
	clock     clockwork.Clock
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	executor  *steps.Executor
	monitor   *ApprovalMonitor
	pageSize  int

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
}

func NewEngine(logger *slog.Logger, cfg Config) (*Engine, error) {
	if cfg.Instances == nil {
		return nil, errors.New("workflow engine requires an instance repository")
	}

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	if cfg.Tracer == nil {
		cfg.Tracer = otelhelper.NoopTracer()
	}

	if cfg.Registry == nil {
		cfg.Registry = registry.NewRegistry(logger)
	}

	if cfg.HistoryPageSize <= 0 {
		cfg.HistoryPageSize = persistence.DefaultListLimit
	}

	logger = logger.With("module", "workflow_engine")

	ctx, cancel := context.WithCancelCause(context.Background())

	engine := &Engine{
		logger:    logger,
		registry:  cfg.Registry,
		instances: cfg.Instances,
		approvals: cfg.Approvals,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		tracer:    cfg.Tracer,
		metrics:   cfg.Metrics,
		pageSize:  cfg.HistoryPageSize,
		ctx:       ctx,
		cancel:    cancel,
		runs:      make(map[string]*run),
	}

	var waiter steps.ApprovalWaiter

	if cfg.Approvals != nil {
		engine.monitor = NewApprovalMonitor(logger, cfg.Approvals, cfg.Clock, cfg.ApprovalPollInterval, cfg.Metrics)
		waiter = engine.monitor
	}

	engine.executor = steps.NewExecutor(logger, cfg.Actions, cfg.Notifications, cfg.Approvals, waiter, cfg.Clock)

	return engine, nil
}

// Registry returns the definitions known to the engine.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Start runs the shared approval sweep until Close.
func (e *Engine) Start() {
	if e.monitor == nil {
		return
	}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		e.monitor.Run(e.ctx)
	}()
}

// Close interrupts every live instance, leaving it running in the store for
// Recover, and waits for the runs to return.
func (e *Engine) Close() {
	e.cancel(errEngineClosed)
	e.wg.Wait()
}

// RegisterWorkflow validates and stores a definition.
func (e *Engine) RegisterWorkflow(definition *models.WorkflowDefinition) error {
	return e.registry.Register(definition)
}

// GetAvailableWorkflows lists the registered definitions.
func (e *Engine) GetAvailableWorkflows() []*models.WorkflowDefinition {
	return e.registry.List()
}

// StartWorkflow creates a pending instance of definitionID and runs it in the
// background. Input variables override the definition's defaults and userId
// is always set to the starting user.
func (e *Engine) StartWorkflow(ctx context.Context, definitionID string, variables map[string]any, userID string) (*models.WorkflowInstance, error) {
	definition, ok := e.registry.Get(definitionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, definitionID)
	}

	merged := maps.Clone(definition.Variables)
	if merged == nil {
		merged = make(map[string]any, len(variables))
	}

	maps.Copy(merged, variables)
	merged[UserIDVariable] = userID

	instance := &models.WorkflowInstance{
		ID:           uuid.NewString(),
		DefinitionID: definition.ID,
		Status:       models.InstanceStatusPending,
		StartTime:    e.clock.Now().UTC(),
		Variables:    merged,
		History:      []models.Event{},
		UserID:       userID,
	}

	if err := e.instances.Upsert(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to store instance: %w", err)
	}

	snapshot := instance.Clone()

	e.launch(definition, instance)

	e.logger.InfoContext(ctx, "Started workflow instance", "workflow_id", definition.ID, "instance_id", instance.ID, "user_id", userID)

	return snapshot, nil
}

func (e *Engine) launch(definition *models.WorkflowDefinition, instance *models.WorkflowInstance) {
	ctx, cancel := context.WithCancelCause(e.ctx)

	r := &run{
		engine:     e,
		definition: definition,
		logger:     e.logger.With("workflow_id", definition.ID, "instance_id", instance.ID),
		instance:   instance,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	e.mu.Lock()
	e.runs[instance.ID] = r
	e.mu.Unlock()

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		r.execute(ctx)
	}()
}

func (e *Engine) lookup(instanceID string) *run {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runs[instanceID]
}

func (e *Engine) forget(instanceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.runs, instanceID)
}

// CancelWorkflow stops a running instance. Dispatched collaborator calls are
// not retracted; waits stop immediately.
func (e *Engine) CancelWorkflow(ctx context.Context, instanceID string) error {
	if r := e.lookup(instanceID); r != nil {
		if !r.finish(ctx, models.InstanceStatusCancelled, nil) {
			return fmt.Errorf("%w: %s is %s", ErrInstanceNotRunning, instanceID, r.status())
		}

		r.cancel(errInstanceCancelled)
		e.logger.InfoContext(ctx, "Cancelled workflow instance", "instance_id", instanceID)

		return nil
	}

	instance, err := e.stored(ctx, instanceID)
	if err != nil {
		return err
	}

	if instance.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrInstanceNotRunning, instanceID, instance.Status)
	}

	// Not driven by this engine: record the cancellation in the store.
	now := e.clock.Now().UTC()
	instance.Status = models.InstanceStatusCancelled
	instance.EndTime = &now
	instance.Suspensions = nil
	instance.History = append(instance.History, models.Event{Timestamp: now, Type: models.EventCancelled, Data: map[string]any{}})

	if err := e.instances.Upsert(ctx, instance); err != nil {
		return fmt.Errorf("failed to store cancelled instance: %w", err)
	}

	return nil
}

// GetWorkflowInstance returns the current state of an instance.
func (e *Engine) GetWorkflowInstance(ctx context.Context, instanceID string) (*models.WorkflowInstance, error) {
	if r := e.lookup(instanceID); r != nil {
		return r.snapshot(), nil
	}

	return e.stored(ctx, instanceID)
}

func (e *Engine) stored(ctx context.Context, instanceID string) (*models.WorkflowInstance, error) {
	instance, err := e.instances.Get(ctx, instanceID)
	if err != nil {
		if persistence.IsInstanceNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		}

		return nil, err
	}

	return instance, nil
}

// GetWorkflowHistory lists stored instances newest first. A zero limit uses
// the engine's page size.
func (e *Engine) GetWorkflowHistory(ctx context.Context, filter persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	if filter.Limit <= 0 {
		filter.Limit = e.pageSize
	}

	return e.instances.List(ctx, filter)
}

// Wait blocks until the instance leaves this engine and returns its final
// state. Instances not driven by this engine are returned as stored.
func (e *Engine) Wait(ctx context.Context, instanceID string) (*models.WorkflowInstance, error) {
	if r := e.lookup(instanceID); r != nil {
		select {
		case <-r.done:
			return r.snapshot(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return e.GetWorkflowInstance(ctx, instanceID)
}

// NotifyApproval wakes the step waiting on approvalID.
func (e *Engine) NotifyApproval(approvalID string) {
	if e.monitor != nil {
		e.monitor.Notify(approvalID)
	}
}

// DecideApproval records a decision through the approval store, wakes the
// waiting step and announces the decision on the event bus.
func (e *Engine) DecideApproval(ctx context.Context, approvalID string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	decider, ok := e.approvals.(protocol.ApprovalDecider)
	if !ok {
		return nil, ErrApprovalDecisionsUnsupported
	}

	decided, err := decider.Decide(ctx, approvalID, status, notes)
	if err != nil {
		return nil, err
	}

	e.NotifyApproval(approvalID)

	if e.publisher != nil {
		err := e.publisher.Publish(ctx, approvalID, events.ApprovalDecided{
			BaseEvent:  events.NewBaseEvent(events.ApprovalDecidedEvent, ""),
			ApprovalID: approvalID,
			InstanceID: decided.InstanceID,
			Status:     decided.Status,
			Notes:      decided.Notes,
		})
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to publish approval decision", "approval_id", approvalID, "error", err)
		}
	}

	return decided, nil
}

// HandleApprovalDecided is the event bus handler for decisions taken on
// other nodes.
func (e *Engine) HandleApprovalDecided(_ context.Context, event any) error {
	decided, ok := event.(*events.ApprovalDecided)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	e.NotifyApproval(decided.ApprovalID)

	return nil
}

// Recover resumes the unfinished instances of the store after a restart.
// Suspended approvals are awaited again rather than requested anew.
func (e *Engine) Recover(ctx context.Context) (int, error) {
	var unfinished []*models.WorkflowInstance

	for _, status := range []models.InstanceStatus{models.InstanceStatusPending, models.InstanceStatusRunning} {
		instances, err := e.instances.List(ctx, persistence.ListInstancesOptions{Status: status, Limit: recoverBatch})
		if err != nil {
			return 0, fmt.Errorf("failed to list %s instances: %w", status, err)
		}

		unfinished = append(unfinished, instances...)
	}

	resumed := 0

	for _, instance := range unfinished {
		if e.lookup(instance.ID) != nil {
			continue
		}

		definition, ok := e.registry.Get(instance.DefinitionID)
		if !ok {
			e.logger.WarnContext(ctx, "Cannot recover instance of unknown definition", "instance_id", instance.ID, "workflow_id", instance.DefinitionID)
			e.failStored(ctx, instance, fmt.Errorf("%w: %s", ErrDefinitionNotFound, instance.DefinitionID))

			continue
		}

		e.launch(definition, instance)
		resumed++
	}

	e.logger.InfoContext(ctx, "Recovered workflow instances", "count", resumed)

	return resumed, nil
}

func (e *Engine) failStored(ctx context.Context, instance *models.WorkflowInstance, cause error) {
	now := e.clock.Now().UTC()
	instance.Status = models.InstanceStatusFailed
	instance.EndTime = &now
	instance.Error = cause.Error()
	instance.Suspensions = nil
	instance.History = append(instance.History, models.Event{Timestamp: now, Type: models.EventFailed, Data: map[string]any{"error": cause.Error()}})

	if err := e.instances.Upsert(ctx, instance); err != nil {
		e.logger.ErrorContext(ctx, "Failed to store failed instance", "instance_id", instance.ID, "error", err)
	}
}
