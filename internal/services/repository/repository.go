package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	ConstraintErrorCode = "23505"

	// MaxPageSize is the hard ceiling the store puts on a single list call.
	MaxPageSize = 100
	// MaxIDsPerQuery is the ceiling on equality-on-id-list filters.
	MaxIDsPerQuery = 25
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrTooManyIDs    = errors.New("too many ids in a single query")
)

// ListFilter scopes a list call. OwnerID is mandatory: the store never
// answers a query that isn't owner-scoped.
type ListFilter struct {
	OwnerID            string
	IDs                []string
	ParentID           *string
	Kind               *FileKind
	MimePrefix         string
	NameSearch         string
	Favorite           *bool
	Deleted            *bool
	OrderByUpdatedDesc bool
}

type UpdateFileInput struct {
	Name       *string
	IsFavorite *bool
	IsDeleted  *bool
}

type Repository interface {
	CreateFile(ctx context.Context, file *FileRecord) error
	GetFile(ctx context.Context, id string) (*FileRecord, error)
	UpdateFile(ctx context.Context, id string, input UpdateFileInput) error
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, filter ListFilter, offset, limit int) ([]*FileRecord, error)

	GetPlan(ctx context.Context, ownerID string) (*PlanRecord, error)
	UpsertPlan(ctx context.Context, plan *PlanRecord) error
}

type storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) Repository {
	return &storage{
		db: db,
	}
}

// Migrate creates the schema in-place. Used by local/test databases;
// production schemas are managed by the migrations package.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&FileRecord{}, &PlanRecord{})
}

func (s storage) CreateFile(ctx context.Context, file *FileRecord) error {
	tx := s.db.WithContext(ctx).Create(file)
	if tx.Error != nil {
		if e, ok := tx.Error.(*pgconn.PgError); ok && e.Code == ConstraintErrorCode {
			return ErrAlreadyExists
		}
		return tx.Error
	}
	return nil
}

func (s storage) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	var file FileRecord
	tx := s.db.WithContext(ctx).Where("id = ?", id).First(&file)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return &file, nil
}

func (s storage) UpdateFile(ctx context.Context, id string, input UpdateFileInput) error {
	fields := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.IsFavorite != nil {
		fields["is_favorite"] = *input.IsFavorite
	}
	if input.IsDeleted != nil {
		fields["is_deleted"] = *input.IsDeleted
	}

	tx := s.db.WithContext(ctx).Table("file_records").Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s storage) DeleteFile(ctx context.Context, id string) error {
	tx := s.db.WithContext(ctx).Where("id = ?", id).Delete(&FileRecord{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s storage) ListFiles(ctx context.Context, filter ListFilter, offset, limit int) ([]*FileRecord, error) {
	if len(filter.IDs) > MaxIDsPerQuery {
		return nil, ErrTooManyIDs
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	tx := s.db.WithContext(ctx).Model(&FileRecord{}).Where("owner_id = ?", filter.OwnerID)

	if len(filter.IDs) > 0 {
		tx = tx.Where("id IN ?", filter.IDs)
	}
	if filter.ParentID != nil {
		tx = tx.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.Kind != nil {
		tx = tx.Where("kind = ?", *filter.Kind)
	}
	if filter.MimePrefix != "" {
		tx = tx.Where("mime_type LIKE ?", filter.MimePrefix+"%")
	}
	if filter.NameSearch != "" {
		tx = tx.Where("name LIKE ?", "%"+filter.NameSearch+"%")
	}
	if filter.Favorite != nil {
		tx = tx.Where("is_favorite = ?", *filter.Favorite)
	}
	if filter.Deleted != nil {
		tx = tx.Where("is_deleted = ?", *filter.Deleted)
	}

	if filter.OrderByUpdatedDesc {
		tx = tx.Order("updated_at DESC")
	} else {
		tx = tx.Order("created_at").Order("id")
	}

	var files []*FileRecord
	if err := tx.Offset(offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (s storage) GetPlan(ctx context.Context, ownerID string) (*PlanRecord, error) {
	var plan PlanRecord
	tx := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&plan)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, tx.Error
	}
	return &plan, nil
}

func (s storage) UpsertPlan(ctx context.Context, plan *PlanRecord) error {
	plan.UpdatedAt = time.Now().UTC()

	var existing PlanRecord
	tx := s.db.WithContext(ctx).Where("owner_id = ?", plan.OwnerID).First(&existing)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			plan.CreatedAt = plan.UpdatedAt
			return s.db.WithContext(ctx).Create(plan).Error
		}
		return tx.Error
	}

	return s.db.WithContext(ctx).Table("plan_records").Where("owner_id = ?", plan.OwnerID).
		Updates(map[string]any{
			"plan_id":    plan.PlanID,
			"status":     plan.Status,
			"updated_at": plan.UpdatedAt,
		}).Error
}
