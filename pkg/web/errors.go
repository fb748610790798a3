package web

import (
	"errors"

	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleEngineError maps engine and store errors to problem responses.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, workflow.ErrDefinitionNotFound):
		return problem(c, fiber.StatusNotFound, "definition_not_found", err.Error())

	case errors.Is(err, workflow.ErrInstanceNotFound):
		return problem(c, fiber.StatusNotFound, "instance_not_found", err.Error())

	case errors.Is(err, workflow.ErrInstanceNotRunning):
		return problem(c, fiber.StatusConflict, "instance_not_running", err.Error())

	case persistence.IsApprovalNotFound(err):
		return problem(c, fiber.StatusNotFound, "approval_not_found", "approval not found")

	case persistence.IsApprovalAlreadyDecided(err):
		return problem(c, fiber.StatusConflict, "approval_already_decided", "approval already decided")

	case errors.Is(err, persistence.ErrInvalidApprovalStatus):
		return badRequest(c, err.Error())

	case errors.Is(err, workflow.ErrApprovalDecisionsUnsupported):
		return problem(c, fiber.StatusNotImplemented, "not_implemented", err.Error())

	default:
		return internalError(c, err)
	}
}
