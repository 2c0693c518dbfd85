package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// StatisticsHandler exposes grade aggregates.
type StatisticsHandler struct {
	service service.StatisticsService
	logger  zerolog.Logger
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(service service.StatisticsService, logger zerolog.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		service: service,
		logger:  logger.With().Str("component", "statistics_handler").Logger(),
	}
}

// Register attaches the /statistics routes.
func (h *StatisticsHandler) Register(router fiber.Router) {
	router.Get("/global", h.global)
	router.Get("/courses", h.courses)
	router.Get("/courses/:id", h.course)
	router.Get("/students/:id", h.student)
	router.Get("/groups/:id", h.group)
}

func (h *StatisticsHandler) global(c *fiber.Ctx) error {
	stats, err := h.service.Global(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "global statistics", stats)
}

func (h *StatisticsHandler) courses(c *fiber.Ctx) error {
	stats, err := h.service.Courses(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "course statistics", stats)
}

func (h *StatisticsHandler) course(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	stats, err := h.service.Course(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "course statistics", stats)
}

func (h *StatisticsHandler) student(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	stats, err := h.service.Student(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "student statistics", stats)
}

func (h *StatisticsHandler) group(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	stats, err := h.service.Group(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "group statistics", stats)
}
