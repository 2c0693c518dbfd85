package dto

import "github.com/noah-isme/eduwork-api/internal/models"

// AttachmentResponse describes a stored file. FileRef is what submissions keep.
type AttachmentResponse struct {
	ID        uint   `json:"id"`
	FileRef   string `json:"file_ref"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// NewAttachmentResponse maps an attachment record.
func NewAttachmentResponse(attachment models.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        attachment.ID,
		FileRef:   attachment.URL,
		FileName:  attachment.FileName,
		MimeType:  attachment.MimeType,
		SizeBytes: attachment.SizeBytes,
		Checksum:  attachment.Checksum,
	}
}
