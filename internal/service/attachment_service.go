package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/eduwork-api/internal/dto"
	"github.com/noah-isme/eduwork-api/internal/models"
	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/repository"
)

var (
	// ErrAttachmentTooLarge indicates the payload exceeded the configured limit.
	ErrAttachmentTooLarge = &LifecycleError{Kind: KindInvalidInput, Detail: "file exceeds maximum allowed size"}
	// ErrAttachmentType indicates the MIME type is not permitted.
	ErrAttachmentType = &LifecycleError{Kind: KindInvalidInput, Detail: "file type not allowed"}
	// ErrAttachmentScan indicates the archive failed inspection.
	ErrAttachmentScan = &LifecycleError{Kind: KindInvalidInput, Detail: "file scanning failed"}
)

// FileStore abstracts where submission and instruction files end up.
type FileStore interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AttachmentService validates files and turns them into opaque references.
type AttachmentService interface {
	Store(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.AttachmentResponse, error)
}

type attachmentService struct {
	store   FileStore
	repo    repository.AttachmentRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewAttachmentService constructs the attachment service.
func NewAttachmentService(store FileStore, repo repository.AttachmentRepository, maxSizeMB int, logger zerolog.Logger) AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	return &attachmentService{
		store:   store,
		repo:    repo,
		logger:  logger.With().Str("component", "attachment_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer(tracerPrefix + "attachment"),
	}
}

func (s *attachmentService) Store(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.AttachmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attachment.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("attachment.max_bytes", s.maxSize))
	if file != nil {
		span.SetAttributes(
			attribute.String("attachment.original_name", strings.TrimSpace(file.Filename)),
			attribute.Int64("attachment.request_size", file.Size),
		)
	}

	start := time.Now()
	defer func() {
		observability.AttachmentLatency().Observe(time.Since(start).Seconds())
	}()

	if actor.ID == 0 {
		return dto.AttachmentResponse{}, reject(span, "auth", ErrNotAuthorized)
	}
	if file == nil {
		return dto.AttachmentResponse{}, reject(span, "missing", newError(KindInvalidInput, "file is required"))
	}
	if file.Size > s.maxSize {
		return dto.AttachmentResponse{}, reject(span, "size", ErrAttachmentTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.AttachmentResponse{}, fmt.Errorf("open attachment: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.AttachmentResponse{}, fmt.Errorf("read attachment: %w", err)
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.AttachmentResponse{}, reject(span, "size", ErrAttachmentTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("attachment.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return dto.AttachmentResponse{}, reject(span, "type", ErrAttachmentType)
	}
	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return dto.AttachmentResponse{}, reject(span, "scan", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	checksum := hex.EncodeToString(sum[:])
	if existing, err := s.repo.FindByChecksum(ctx, actor.ID, checksum); err == nil {
		span.SetAttributes(attribute.Bool("attachment.reused", true))
		return dto.NewAttachmentResponse(existing), nil
	}

	name := sanitizeFileName(file.Filename)
	span.SetAttributes(
		attribute.String("attachment.sanitized_name", name),
		attribute.Int64("attachment.size_bytes", int64(buf.Len())),
	)

	url, err := s.store.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.AttachmentRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.AttachmentResponse{}, fmt.Errorf("store attachment: %w", err)
	}

	record := models.Attachment{
		UploadedBy: actor.ID,
		FileName:   name,
		URL:        url,
		MimeType:   fileType,
		SizeBytes:  int64(buf.Len()),
		Checksum:   checksum,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.AttachmentResponse{}, fmt.Errorf("record attachment: %w", err)
	}

	observability.AttachmentRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Uint("attachment_id", record.ID).Uint("uploaded_by", actor.ID).Str("mime", fileType).Msg("attachment stored")

	return dto.NewAttachmentResponse(record), nil
}

func reject(span trace.Span, reason string, err error) error {
	observability.AttachmentRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	return err
}

func (s *attachmentService) scan(payload []byte, mime string) error {
	if !strings.Contains(mime, "zip") {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrAttachmentScan
	}
	var total uint64
	for _, f := range reader.File {
		total += f.UncompressedSize64
		if total > uint64(s.maxSize*20) {
			return newError(KindInvalidInput, "zip archive uncompressed size too large")
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("attachment-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(lower, "image/") {
		return "image"
	}
	if i := strings.Index(lower, ";"); i >= 0 {
		lower = strings.TrimSpace(lower[:i])
	}
	switch lower {
	case "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}

// isAllowedType accepts the document formats trainees hand in.
func isAllowedType(m string) bool {
	switch m {
	case "image",
		"application/pdf",
		"application/zip",
		"text/plain",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text",
		"application/msword":
		return true
	default:
		return false
	}
}

