package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/eduwork-api/internal/models"
)

// AttachmentRepository persists metadata about stored submission files.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	FindByChecksum(ctx context.Context, uploadedBy uint, checksum string) (models.Attachment, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository constructs a repository for attachment records.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) FindByChecksum(ctx context.Context, uploadedBy uint, checksum string) (models.Attachment, error) {
	var attachment models.Attachment
	err := r.db.WithContext(ctx).
		Where("uploaded_by = ? AND checksum = ?", uploadedBy, checksum).
		Order("id DESC").
		First(&attachment).Error
	return attachment, err
}
