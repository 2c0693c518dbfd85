package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/service"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// SubmissionHandler exposes submission endpoints. Submit routes accept JSON
// or a multipart form with an optional "file" part.
type SubmissionHandler struct {
	service     service.SubmissionService
	attachments service.AttachmentService
	logger      zerolog.Logger
}

// NewSubmissionHandler constructs the handler. attachments may be nil when no
// file store is configured; multipart files are then rejected.
func NewSubmissionHandler(service service.SubmissionService, attachments service.AttachmentService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:     service,
		attachments: attachments,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// RegisterWorkRoutes attaches the /works/:id/submissions route.
func (h *SubmissionHandler) RegisterWorkRoutes(router fiber.Router) {
	router.Get("/:id/submissions", h.listByWork)
}

// Register attaches the /submissions routes. guards run in front of the two
// submit routes only, such as the student guard and the rate limiter.
func (h *SubmissionHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/individual/:id", append(guards, h.submitIndividual)...)
	router.Post("/group/:id", append(guards, h.submitGroup)...)
	router.Get("/me", h.mine)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) submitIndividual(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	payload, err := h.parseSubmitPayload(c)
	if err != nil {
		return h.payloadError(c, err)
	}

	submission, err := h.service.SubmitIndividual(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit work")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission stored", submission)
}

func (h *SubmissionHandler) submitGroup(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	payload, err := h.parseSubmitPayload(c)
	if err != nil {
		return h.payloadError(c, err)
	}

	submission, err := h.service.SubmitGroup(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit work")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission stored", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission", submission)
}

func (h *SubmissionHandler) mine(c *fiber.Ctx) error {
	submissions, err := h.service.Mine(requestContext(c), actorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions", submissions)
}

func (h *SubmissionHandler) listByWork(c *fiber.Ctx) error {
	workID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submissions, err := h.service.ListByWork(requestContext(c), actorFromContext(c), workID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions", submissions)
}

var (
	errInvalidPayload      = errors.New("invalid payload")
	errAttachmentsDisabled = errors.New("file attachments are not enabled")
)

// parseSubmitPayload reads the body and, for multipart requests carrying a
// file part, stores the file and replaces FileRef with the stored reference.
func (h *SubmissionHandler) parseSubmitPayload(c *fiber.Ctx) (dto.SubmitRequest, error) {
	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return payload, errInvalidPayload
	}

	if !isMultipart(c) {
		return payload, nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) {
			return payload, nil
		}
		return payload, errInvalidPayload
	}
	if h.attachments == nil {
		return payload, errAttachmentsDisabled
	}

	stored, err := h.attachments.Store(requestContext(c), actorFromContext(c), file)
	if err != nil {
		return payload, err
	}
	payload.FileRef = stored.FileRef
	return payload, nil
}

func (h *SubmissionHandler) payloadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errInvalidPayload), errors.Is(err, errAttachmentsDisabled):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return handleError(c, h.logger, err, "failed to store attachment")
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return len(c.Request().Header.MultipartFormBoundary()) > 0
}
