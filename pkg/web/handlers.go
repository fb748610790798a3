package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/siteflow/pkg/eventbus"
	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	logger      *slog.Logger
	engine      *workflow.Engine
	persistence persistence.Persistence
	eventBus    eventbus.EventPublisher
	validator   *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	engine *workflow.Engine,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger.With("module", "api"),
		engine:      engine,
		persistence: persistence,
		eventBus:    eventBus,
		validator:   validator,
	}
}

func (h *APIHandlers) GetDefinitions(c fiber.Ctx) error {
	definitions := h.engine.GetAvailableWorkflows()

	summaries := make([]DefinitionSummary, 0, len(definitions))
	for _, definition := range definitions {
		summaries = append(summaries, DefinitionSummary{
			ID:          definition.ID,
			Name:        definition.Name,
			Description: definition.Description,
			Trigger:     definition.Trigger.Type,
			Steps:       len(definition.Steps),
		})
	}

	return c.JSON(fiber.Map{"definitions": summaries})
}

func (h *APIHandlers) GetDefinition(c fiber.Ctx) error {
	definition, ok := h.engine.Registry().Get(c.Params("id"))
	if !ok {
		return problem(c, fiber.StatusNotFound, "definition_not_found", "workflow definition not found")
	}

	return c.JSON(definition)
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	var req StartWorkflowRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.engine.StartWorkflow(c.Context(), c.Params("id"), req.Variables, req.UserID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(instance)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	instance, err := h.engine.GetWorkflowInstance(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) CancelInstance(c fiber.Ctx) error {
	if err := h.engine.CancelWorkflow(c.Context(), c.Params("id")); err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	var query HistoryQuery

	if err := c.Bind().Query(&query); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	instances, err := h.engine.GetWorkflowHistory(c.Context(), persistence.ListInstancesOptions{
		DefinitionID: query.DefinitionID,
		Status:       models.InstanceStatus(query.Status),
		UserID:       query.UserID,
		Limit:        query.Limit,
	})
	if err != nil {
		return internalError(c, err)
	}

	if instances == nil {
		instances = []*models.WorkflowInstance{}
	}

	return c.JSON(fiber.Map{"instances": instances})
}

func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	var req DecideApprovalRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	decided, err := h.engine.DecideApproval(c.Context(), c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(decided)
}

// PublishEvent forwards an external event to the trigger manager over the
// event bus.
func (h *APIHandlers) PublishEvent(c fiber.Ctx) error {
	if h.eventBus == nil {
		return problem(c, fiber.StatusServiceUnavailable, "event_bus_unavailable", "event bus not configured")
	}

	var req PublishEventRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.WorkflowTriggered{
		BaseEvent: events.NewBaseEvent(events.WorkflowTriggeredEvent, req.WorkflowID),
		Event:     req.Event,
		Data:      req.Data,
		UserID:    req.UserID,
	}

	key := req.WorkflowID
	if key == "" {
		key = req.Event
	}

	if err := h.eventBus.Publish(c.Context(), key, event); err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to publish event", "event", req.Event, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": event.ID})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	repository := "ok"

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		repository = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"definitions": len(h.engine.GetAvailableWorkflows()),
			"repository":  repository,
		},
		"timestamp": time.Now().UTC(),
	})
}
