package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// WorkHandler exposes work authoring and deadline endpoints.
type WorkHandler struct {
	service service.WorkService
	logger  zerolog.Logger
}

// NewWorkHandler constructs the handler.
func NewWorkHandler(service service.WorkService, logger zerolog.Logger) *WorkHandler {
	return &WorkHandler{
		service: service,
		logger:  logger.With().Str("component", "work_handler").Logger(),
	}
}

// Register attaches work routes to the router group.
func (h *WorkHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Get("/:id/deadline", h.deadline)
	router.Get("/:id/progress", h.progress)
}

func (h *WorkHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	courseSpaceID, err := parseQueryUint(c, "course_space_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid course space")
	}

	req := dto.WorkListRequest{
		CourseSpaceID: courseSpaceID,
		Kind:          c.Query("kind"),
		Search:        c.Query("search"),
		Sort:          c.Query("sort"),
		Page:          page,
		PageSize:      pageSize,
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list works")
	}

	return utils.OK(c, response.Items, "works", response.Pagination)
}

func (h *WorkHandler) create(c *fiber.Ctx) error {
	var payload dto.WorkCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	work, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create work")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "work created", work)
}

func (h *WorkHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	work, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load work")
	}

	return utils.SendSuccess(c, "work", work)
}

func (h *WorkHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.WorkUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	work, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update work")
	}

	return utils.SendSuccess(c, "work updated", work)
}

func (h *WorkHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete work")
	}

	return utils.SendSuccess(c, "work deleted", nil)
}

func (h *WorkHandler) deadline(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	deadline, err := h.service.Deadline(requestContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to classify deadline")
	}

	return utils.SendSuccess(c, "deadline", deadline)
}

func (h *WorkHandler) progress(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	progress, err := h.service.Progress(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute progress")
	}

	return utils.SendSuccess(c, "work progress", progress)
}
