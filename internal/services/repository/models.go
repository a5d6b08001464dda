package repository

import (
	"time"

	"github.com/google/uuid"
)

type FileKind string

const (
	FileKindFile   FileKind = "file"
	FileKindFolder FileKind = "folder"
)

type FileRecord struct {
	ID         string   `gorm:"primaryKey"`
	OwnerID    string   `gorm:"index;not null"`
	Name       string   `gorm:"not null"`
	Kind       FileKind `gorm:"type:varchar(16);not null;index"`
	Size       int64
	MimeType   string
	BlobRef    string
	URL        string
	ParentID   *string `gorm:"index"`
	IsFavorite bool
	IsDeleted  bool `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewFile(ownerID, name, mimeType, blobRef, url string, size int64, parentID *string) FileRecord {
	now := time.Now().UTC()
	return FileRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Kind:      FileKindFile,
		Size:      size,
		MimeType:  mimeType,
		BlobRef:   blobRef,
		URL:       url,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewFolder(ownerID, name string, parentID *string) FileRecord {
	now := time.Now().UTC()
	return FileRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		Kind:      FileKindFolder,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type PlanRecord struct {
	OwnerID   string `gorm:"primaryKey"`
	PlanID    string `gorm:"not null"`
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
