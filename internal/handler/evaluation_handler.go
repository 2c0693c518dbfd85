package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// EvaluationHandler exposes grading and correction endpoints.
type EvaluationHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(service service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the /evaluations routes.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
	router.Get("/me", h.mine)
	router.Get("/:id", h.get)
	router.Put("/:id", h.correct)
	router.Get("/:id/corrections", h.corrections)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.EvaluateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.service.Evaluate(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to evaluate submission")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission evaluated", evaluation)
}

func (h *EvaluationHandler) correct(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.CorrectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.service.Correct(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to correct evaluation")
	}

	return utils.SendSuccess(c, "evaluation corrected", evaluation)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	evaluation, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load evaluation")
	}

	return utils.SendSuccess(c, "evaluation", evaluation)
}

func (h *EvaluationHandler) mine(c *fiber.Ctx) error {
	grades, err := h.service.MyGrades(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list grades")
	}

	return utils.SendSuccess(c, "grades", grades)
}

func (h *EvaluationHandler) corrections(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	history, err := h.service.Corrections(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list corrections")
	}

	return utils.SendSuccess(c, "corrections", history)
}
