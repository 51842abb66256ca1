package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DocTypeBirthCertificate = "birth_certificate"
	DocTypeITC              = "itc" // international transfer certificate
	DocTypeGuardianConsent  = "guardian_consent"
	DocTypeMedicalClearance = "medical_clearance"
	DocTypeRegistration     = "registration"

	DocStatusValid    = "valid"
	DocStatusExpiring = "expiring"
	DocStatusExpired  = "expired"
)

// ComplianceDocument is the metadata row for a FIFA-compliance file stored in
// object storage. The file itself lives in S3 under ObjectKey.
type ComplianceDocument struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UUID        string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	AcademyID   uint       `gorm:"not null;index" json:"academy_id"`
	PlayerID    *uint      `gorm:"index;default:null" json:"player_id,omitempty"`
	TransferID  *uint      `gorm:"index;default:null" json:"transfer_id,omitempty"`
	DocType     string     `gorm:"type:varchar(32);not null;index" json:"doc_type"`
	FileName    string     `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey   string     `gorm:"type:varchar(255);not null" json:"-"`
	SizeBytes   int64      `gorm:"not null;default:0" json:"size_bytes"`
	ContentType string     `gorm:"type:varchar(100);default:''" json:"content_type"`
	ExpiresAt   *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	Status      string     `gorm:"type:varchar(20);not null;default:'valid';index" json:"status"`
	UploadedBy  uint       `gorm:"index" json:"uploaded_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidDocType reports whether the given document type is known.
func IsValidDocType(t string) bool {
	switch t {
	case DocTypeBirthCertificate, DocTypeITC, DocTypeGuardianConsent, DocTypeMedicalClearance, DocTypeRegistration:
		return true
	}
	return false
}

// NewComplianceDocument builds a document metadata row with a fresh UUID.
func NewComplianceDocument(academyID uint, docType, fileName, objectKey, contentType string, sizeBytes int64, uploadedBy uint) *ComplianceDocument {
	return &ComplianceDocument{
		UUID:        uuid.NewString(),
		AcademyID:   academyID,
		DocType:     docType,
		FileName:    fileName,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Status:      DocStatusValid,
		UploadedBy:  uploadedBy,
	}
}
