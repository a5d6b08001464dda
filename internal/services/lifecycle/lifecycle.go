package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blkmlk/file-dashboard/internal/helpers"
	"github.com/blkmlk/file-dashboard/internal/services/blobstore"
	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBlobDeleteFailed marks a tolerated blob-store failure during
	// permanent deletion. The record is removed regardless, trading a
	// possible blob leak for never keeping a record around a blob the
	// owner asked to destroy.
	ErrBlobDeleteFailed = errors.New("blob delete failed")
)

// Engine applies state transitions to file records. Every operation is
// scoped to the calling owner; records belonging to anyone else are treated
// as missing or rejected, never touched.
//
// Trashing or deleting a folder does not cascade to its children: they stay
// listable under their own flags and surface at their old parent id.
type Engine interface {
	ListFiles(ctx context.Context, ownerID string, parentID *string, kind *repository.FileKind) ([]*repository.FileRecord, error)
	ListByMimePrefix(ctx context.Context, ownerID, prefix string) ([]*repository.FileRecord, error)
	ListFavorites(ctx context.Context, ownerID string) ([]*repository.FileRecord, error)
	ListTrash(ctx context.Context, ownerID string) ([]*repository.FileRecord, error)
	ListRecentByUpdated(ctx context.Context, ownerID string, limit int) ([]*repository.FileRecord, error)

	CreateFolder(ctx context.Context, ownerID, name string, parentID *string) (*repository.FileRecord, error)
	RenameItem(ctx context.Context, ownerID, id, newName string) (*repository.FileRecord, error)
	ToggleFavorite(ctx context.Context, ownerID, id string) (*repository.FileRecord, error)
	MoveToTrash(ctx context.Context, ownerID, id string) (*repository.FileRecord, error)
	RestoreFromTrash(ctx context.Context, ownerID, id string) (*repository.FileRecord, error)
	PermanentlyDelete(ctx context.Context, ownerID, id string) error
	EmptyTrash(ctx context.Context, ownerID string) (*TrashResult, error)

	BatchToggleFavorite(ctx context.Context, ownerID string, ids []string) (*BatchResult, error)
	BatchMoveToTrash(ctx context.Context, ownerID string, ids []string) (*BatchResult, error)
	BatchRestoreFromTrash(ctx context.Context, ownerID string, ids []string) (*BatchResult, error)
	BatchPermanentlyDelete(ctx context.Context, ownerID string, ids []string) (*BatchResult, error)
}

func New(
	repo repository.Repository,
	blobs blobstore.Storage,
	log *zap.SugaredLogger,
) Engine {
	return &engine{
		repo:  repo,
		blobs: blobs,
		log:   log,
	}
}

type engine struct {
	repo  repository.Repository
	blobs blobstore.Storage
	log   *zap.SugaredLogger
}

// getOwned fails closed: a record owned by someone else comes back as
// ErrUnauthorized, never as data.
func (e *engine) getOwned(ctx context.Context, ownerID, id string) (*repository.FileRecord, error) {
	file, err := e.repo.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if file.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}

	return file, nil
}

func (e *engine) ListFiles(ctx context.Context, ownerID string, parentID *string, kind *repository.FileKind) ([]*repository.FileRecord, error) {
	notDeleted := false
	return repository.FetchAll(ctx, e.repo, repository.ListFilter{
		OwnerID:  ownerID,
		ParentID: parentID,
		Kind:     kind,
		Deleted:  &notDeleted,
	})
}

func (e *engine) ListByMimePrefix(ctx context.Context, ownerID, prefix string) ([]*repository.FileRecord, error) {
	notDeleted := false
	return repository.FetchAll(ctx, e.repo, repository.ListFilter{
		OwnerID:    ownerID,
		MimePrefix: prefix,
		Deleted:    &notDeleted,
	})
}

func (e *engine) ListFavorites(ctx context.Context, ownerID string) ([]*repository.FileRecord, error) {
	favorite := true
	notDeleted := false
	return repository.FetchAll(ctx, e.repo, repository.ListFilter{
		OwnerID:  ownerID,
		Favorite: &favorite,
		Deleted:  &notDeleted,
	})
}

func (e *engine) ListTrash(ctx context.Context, ownerID string) ([]*repository.FileRecord, error) {
	deleted := true
	return repository.FetchAll(ctx, e.repo, repository.ListFilter{
		OwnerID: ownerID,
		Deleted: &deleted,
	})
}

// ListRecentByUpdated is bounded by limit and therefore single-page.
func (e *engine) ListRecentByUpdated(ctx context.Context, ownerID string, limit int) ([]*repository.FileRecord, error) {
	notDeleted := false
	return e.repo.ListFiles(ctx, repository.ListFilter{
		OwnerID:            ownerID,
		Deleted:            &notDeleted,
		OrderByUpdatedDesc: true,
	}, 0, limit)
}

func (e *engine) CreateFolder(ctx context.Context, ownerID, name string, parentID *string) (*repository.FileRecord, error) {
	folder := repository.NewFolder(ownerID, name, parentID)
	if err := e.repo.CreateFile(ctx, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (e *engine) RenameItem(ctx context.Context, ownerID, id, newName string) (*repository.FileRecord, error) {
	if _, err := e.getOwned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if err := e.repo.UpdateFile(ctx, id, repository.UpdateFileInput{Name: &newName}); err != nil {
		return nil, err
	}

	return e.repo.GetFile(ctx, id)
}

func (e *engine) ToggleFavorite(ctx context.Context, ownerID, id string) (*repository.FileRecord, error) {
	file, err := e.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	flipped := !file.IsFavorite
	if err = e.repo.UpdateFile(ctx, id, repository.UpdateFileInput{IsFavorite: &flipped}); err != nil {
		return nil, err
	}

	return e.repo.GetFile(ctx, id)
}

func (e *engine) MoveToTrash(ctx context.Context, ownerID, id string) (*repository.FileRecord, error) {
	return e.setDeleted(ctx, ownerID, id, true)
}

func (e *engine) RestoreFromTrash(ctx context.Context, ownerID, id string) (*repository.FileRecord, error) {
	return e.setDeleted(ctx, ownerID, id, false)
}

func (e *engine) setDeleted(ctx context.Context, ownerID, id string, deleted bool) (*repository.FileRecord, error) {
	file, err := e.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	// already in the target state: idempotent no-op
	if file.IsDeleted == deleted {
		return file, nil
	}

	if err = e.repo.UpdateFile(ctx, id, repository.UpdateFileInput{IsDeleted: &deleted}); err != nil {
		return nil, err
	}

	return e.repo.GetFile(ctx, id)
}

func (e *engine) PermanentlyDelete(ctx context.Context, ownerID, id string) error {
	file, err := e.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	e.deleteBlob(ctx, file)

	return e.repo.DeleteFile(ctx, id)
}

// deleteBlob removes the blob behind a file record. Failures are logged and
// tolerated; the caller deletes the record regardless.
func (e *engine) deleteBlob(ctx context.Context, file *repository.FileRecord) {
	if file.Kind != repository.FileKindFile || file.BlobRef == "" {
		return
	}

	if err := e.blobs.Delete(ctx, file.BlobRef); err != nil {
		e.log.With("err", errors.Wrap(ErrBlobDeleteFailed, err.Error()), "blob_ref", file.BlobRef).
			Warn("leaking blob for deleted record")
	}
}

type TrashResult struct {
	Processed      int
	FilesDeleted   int
	FoldersDeleted int
}

func (e *engine) EmptyTrash(ctx context.Context, ownerID string) (*TrashResult, error) {
	trashed, err := e.ListTrash(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for _, file := range trashed {
		wg.Add(1)
		go func(file *repository.FileRecord) {
			defer wg.Done()
			e.deleteBlob(ctx, file)
		}(file)
	}
	wg.Wait()

	var files, folders atomic.Int64
	errs := make(chan error, len(trashed))

	for _, file := range trashed {
		wg.Add(1)
		go func(file *repository.FileRecord) {
			defer wg.Done()

			if err := e.repo.DeleteFile(ctx, file.ID); err != nil {
				errs <- err
				return
			}

			if file.Kind == repository.FileKindFolder {
				folders.Add(1)
			} else {
				files.Add(1)
			}
		}(file)
	}
	wg.Wait()
	close(errs)

	if err := helpers.ReadErrors(errs); err != nil {
		e.log.With("err", err).Error("failed to delete some trashed records")
	}

	return &TrashResult{
		Processed:      int(files.Load() + folders.Load()),
		FilesDeleted:   int(files.Load()),
		FoldersDeleted: int(folders.Load()),
	}, nil
}
