package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// DistributionHandler exposes assignment distribution endpoints.
type DistributionHandler struct {
	service service.DistributionService
	logger  zerolog.Logger
}

// NewDistributionHandler constructs the handler.
func NewDistributionHandler(service service.DistributionService, logger zerolog.Logger) *DistributionHandler {
	return &DistributionHandler{
		service: service,
		logger:  logger.With().Str("component", "distribution_handler").Logger(),
	}
}

// RegisterWorkRoutes attaches the /works/:id distribution routes.
func (h *DistributionHandler) RegisterWorkRoutes(router fiber.Router) {
	router.Get("/:id/assignments", h.list)
	router.Post("/:id/assignments", h.assign)
	router.Post("/:id/attach-groups", h.attachGroups)
}

// Register attaches the /assignments routes.
func (h *DistributionHandler) Register(router fiber.Router) {
	router.Get("/me", h.mine)
	router.Delete("/:id", h.remove)
}

func (h *DistributionHandler) assign(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AssignIndividualRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.AssignIndividual(requestContext(c), actorFromContext(c), workID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to assign work")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "work assigned", result)
}

func (h *DistributionHandler) attachGroups(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AttachGroupsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.AttachGroups(requestContext(c), actorFromContext(c), workID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to attach groups")
	}

	return utils.SendSuccess(c, "groups attached", result)
}

func (h *DistributionHandler) list(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	assignments, err := h.service.ListAssignments(requestContext(c), actorFromContext(c), workID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments", assignments)
}

func (h *DistributionHandler) mine(c *fiber.Ctx) error {
	assignments, err := h.service.MyAssignments(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments", assignments)
}

func (h *DistributionHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.RemoveAssignment(requestContext(c), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to remove assignment")
	}

	return utils.SendSuccess(c, "assignment removed", nil)
}
