package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// AttachmentHandler handles standalone attachment uploads.
type AttachmentHandler struct {
	service service.AttachmentService
	logger  zerolog.Logger
}

// NewAttachmentHandler constructs an attachment handler.
func NewAttachmentHandler(service service.AttachmentService, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		service: service,
		logger:  logger.With().Str("component", "attachment_handler").Logger(),
	}
}

// Register wires attachment routes, optionally behind extra handlers such as a rate limiter.
func (h *AttachmentHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", append(guards, h.upload)...)
}

func (h *AttachmentHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Store(requestContext(c), actorFromContext(c), file)
	if err != nil {
		var rejected *service.LifecycleError
		if errors.As(err, &rejected) && rejected == service.ErrAttachmentTooLarge {
			return utils.Fail(c, fiber.StatusRequestEntityTooLarge, err.Error(), fiber.Map{"kind": string(service.KindInvalidInput)})
		}
		return handleError(c, h.logger, err, "upload failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "upload successful", result)
}
