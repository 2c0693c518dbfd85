package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// GroupHandler exposes group formation endpoints.
type GroupHandler struct {
	service service.GroupService
	logger  zerolog.Logger
}

// NewGroupHandler constructs the handler.
func NewGroupHandler(service service.GroupService, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		service: service,
		logger:  logger.With().Str("component", "group_handler").Logger(),
	}
}

// RegisterWorkRoutes attaches the /works/:id/groups routes.
func (h *GroupHandler) RegisterWorkRoutes(router fiber.Router) {
	router.Get("/:id/groups", h.list)
	router.Post("/:id/groups", h.create)
}

// Register attaches the /groups routes.
func (h *GroupHandler) Register(router fiber.Router) {
	router.Delete("/:id", h.delete)
	router.Post("/:id/members/:studentId", h.addMember)
	router.Delete("/:id/members/:studentId", h.removeMember)
}

func (h *GroupHandler) list(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	groups, err := h.service.ListGroups(requestContext(c), workID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list groups")
	}

	return utils.SendSuccess(c, "groups", groups)
}

func (h *GroupHandler) create(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.GroupCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	group, err := h.service.CreateGroup(requestContext(c), actorFromContext(c), workID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create group")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "group created", group)
}

func (h *GroupHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.DeleteGroup(requestContext(c), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete group")
	}

	return utils.SendSuccess(c, "group deleted", nil)
}

func (h *GroupHandler) addMember(c *fiber.Ctx) error {
	id, studentID, err := groupMemberParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	group, err := h.service.AddMember(requestContext(c), actorFromContext(c), id, studentID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to add group member")
	}

	return utils.SendSuccess(c, "group member added", group)
}

func (h *GroupHandler) removeMember(c *fiber.Ctx) error {
	id, studentID, err := groupMemberParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	group, err := h.service.RemoveMember(requestContext(c), actorFromContext(c), id, studentID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to remove group member")
	}

	return utils.SendSuccess(c, "group member removed", group)
}

func groupMemberParams(c *fiber.Ctx) (uint, uint, error) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return 0, 0, err
	}
	return id, studentID, nil
}
