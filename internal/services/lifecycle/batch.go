package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blkmlk/file-dashboard/internal/helpers"
	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

// BatchResult carries the best-effort outcome of a batch transition.
// Requested counts the ids the caller sent, Owned the subset resolved to
// records of the calling owner, Succeeded the transitions that went through.
// Ids that are missing or belong to someone else are silently dropped, so
// Owned < Requested is a normal outcome, not a failure.
type BatchResult struct {
	Requested int
	Owned     int
	Succeeded int
}

// batchApply fans a transition out over an id list: the list is chunked at
// the store's id-query ceiling, each chunk resolved to owned records, and the
// transition applied to every retained record in parallel. No ordering or
// atomicity across records; a failure partway through leaves partial state.
func (e *engine) batchApply(
	ctx context.Context,
	ownerID string,
	ids []string,
	apply func(ctx context.Context, file *repository.FileRecord) error,
) (*BatchResult, error) {
	result := BatchResult{
		Requested: len(ids),
	}

	var succeeded atomic.Int64

	for _, chunk := range chunkIDs(ids, repository.MaxIDsPerQuery) {
		records, err := e.repo.ListFiles(ctx, repository.ListFilter{
			OwnerID: ownerID,
			IDs:     chunk,
		}, 0, repository.MaxPageSize)
		if err != nil {
			return nil, err
		}

		result.Owned += len(records)

		var wg sync.WaitGroup
		errs := make(chan error, len(records))

		for _, record := range records {
			wg.Add(1)
			go func(record *repository.FileRecord) {
				defer wg.Done()

				if err := apply(ctx, record); err != nil {
					errs <- err
					return
				}
				succeeded.Add(1)
			}(record)
		}
		wg.Wait()
		close(errs)

		if err := helpers.ReadErrors(errs); err != nil {
			e.log.With("err", err).Error("batch transition failed for some records")
		}
	}

	result.Succeeded = int(succeeded.Load())

	return &result, nil
}

func (e *engine) BatchToggleFavorite(ctx context.Context, ownerID string, ids []string) (*BatchResult, error) {
	return e.batchApply(ctx, ownerID, ids, func(ctx context.Context, file *repository.FileRecord) error {
		flipped := !file.IsFavorite
		return e.repo.UpdateFile(ctx, file.ID, repository.UpdateFileInput{IsFavorite: &flipped})
	})
}

func (e *engine) BatchMoveToTrash(ctx context.Context, ownerID string, ids []string) (*BatchResult, error) {
	deleted := true
	return e.batchApply(ctx, ownerID, ids, func(ctx context.Context, file *repository.FileRecord) error {
		return e.repo.UpdateFile(ctx, file.ID, repository.UpdateFileInput{IsDeleted: &deleted})
	})
}

func (e *engine) BatchRestoreFromTrash(ctx context.Context, ownerID string, ids []string) (*BatchResult, error) {
	deleted := false
	return e.batchApply(ctx, ownerID, ids, func(ctx context.Context, file *repository.FileRecord) error {
		return e.repo.UpdateFile(ctx, file.ID, repository.UpdateFileInput{IsDeleted: &deleted})
	})
}

func (e *engine) BatchPermanentlyDelete(ctx context.Context, ownerID string, ids []string) (*BatchResult, error) {
	return e.batchApply(ctx, ownerID, ids, func(ctx context.Context, file *repository.FileRecord) error {
		e.deleteBlob(ctx, file)
		return e.repo.DeleteFile(ctx, file.ID)
	})
}
