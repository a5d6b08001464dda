package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blkmlk/file-dashboard/internal/services/blobstore"
	"github.com/blkmlk/file-dashboard/internal/services/lifecycle"
	"github.com/blkmlk/file-dashboard/internal/services/quota"
	"github.com/blkmlk/file-dashboard/internal/services/repository"
)

// HeaderOwnerID carries the authenticated principal, resolved by the auth
// layer in front of this service.
const HeaderOwnerID = "X-Owner-ID"

type RestController struct {
	log    *zap.SugaredLogger
	repo   repository.Repository
	blobs  blobstore.Storage
	engine lifecycle.Engine
	quota  *quota.Service
}

func NewRestController(
	log *zap.SugaredLogger,
	repo repository.Repository,
	blobs blobstore.Storage,
	engine lifecycle.Engine,
	quotaService *quota.Service,
) *RestController {
	return &RestController{
		log:    log,
		repo:   repo,
		blobs:  blobs,
		engine: engine,
		quota:  quotaService,
	}
}

type UploadFileResponse struct {
	Success bool   `json:"success"`
	FileID  string `json:"fileId,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *RestController) UploadFile(ctx *gin.Context) {
	mf, err := ctx.MultipartForm()
	if err != nil {
		c.log.With("err", err).Error("failed to open multiform")
		ctx.JSON(http.StatusBadRequest, &UploadFileResponse{Error: "invalid multipart body"})
		return
	}

	files, ok := mf.File["file"]
	if !ok || len(files) != 1 {
		ctx.JSON(http.StatusBadRequest, &UploadFileResponse{Error: "exactly one file is required"})
		return
	}
	file := files[0]

	ownerID := formValue(mf.Value, "ownerId")
	if ownerID == "" {
		ctx.JSON(http.StatusBadRequest, &UploadFileResponse{Error: "ownerId is required"})
		return
	}

	var parentID *string
	if v := formValue(mf.Value, "parentId"); v != "" {
		parentID = &v
	}

	pipe, err := file.Open()
	if err != nil {
		c.log.With("err", err).Error("failed to open file")
		ctx.JSON(http.StatusInternalServerError, &UploadFileResponse{Error: "failed to read file"})
		return
	}
	defer func() {
		_ = pipe.Close()
	}()

	blobRef := uuid.NewString()
	if err = c.blobs.Put(ctx, blobRef, pipe, file.Size); err != nil {
		c.log.With("err", err).Error("failed to store blob")
		ctx.JSON(http.StatusInternalServerError, &UploadFileResponse{Error: "failed to store file"})
		return
	}

	record := repository.NewFile(
		ownerID,
		file.Filename,
		file.Header.Get("Content-Type"),
		blobRef,
		"/api/v1/blobs/"+blobRef,
		file.Size,
		parentID,
	)
	if err = c.repo.CreateFile(ctx, &record); err != nil {
		c.log.With("err", err).Error("failed to create file record")
		ctx.JSON(http.StatusInternalServerError, &UploadFileResponse{Error: "failed to create record"})
		return
	}

	ctx.JSON(http.StatusCreated, &UploadFileResponse{
		Success: true,
		FileID:  record.ID,
		URL:     record.URL,
	})
}

func formValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c *RestController) ownerID(ctx *gin.Context) (string, bool) {
	ownerID := ctx.GetHeader(HeaderOwnerID)
	if ownerID == "" {
		ctx.Status(http.StatusUnauthorized)
		return "", false
	}
	return ownerID, true
}

func (c *RestController) ListFiles(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	var parentID *string
	if v := ctx.Query("parent_id"); v != "" {
		parentID = &v
	}

	var kind *repository.FileKind
	if v := ctx.Query("kind"); v != "" {
		k := repository.FileKind(v)
		kind = &k
	}

	if prefix := ctx.Query("mime_prefix"); prefix != "" {
		files, err := c.engine.ListByMimePrefix(ctx, ownerID, prefix)
		c.respondFiles(ctx, files, err)
		return
	}

	files, err := c.engine.ListFiles(ctx, ownerID, parentID, kind)
	c.respondFiles(ctx, files, err)
}

func (c *RestController) ListFavorites(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	files, err := c.engine.ListFavorites(ctx, ownerID)
	c.respondFiles(ctx, files, err)
}

func (c *RestController) ListTrash(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	files, err := c.engine.ListTrash(ctx, ownerID)
	c.respondFiles(ctx, files, err)
}

func (c *RestController) ListRecent(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	limit := 20
	if v := ctx.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			ctx.Status(http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	files, err := c.engine.ListRecentByUpdated(ctx, ownerID, limit)
	c.respondFiles(ctx, files, err)
}

func (c *RestController) respondFiles(ctx *gin.Context, files []*repository.FileRecord, err error) {
	if err != nil {
		c.log.With("err", err).Error("failed to list files")
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, files)
}

type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parentId"`
}

func (c *RestController) CreateFolder(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	var req CreateFolderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	folder, err := c.engine.CreateFolder(ctx, ownerID, req.Name, req.ParentID)
	if err != nil {
		c.log.With("err", err).Error("failed to create folder")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.JSON(http.StatusCreated, folder)
}

type RenameItemRequest struct {
	Name string `json:"name" binding:"required"`
}

func (c *RestController) RenameItem(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	var req RenameItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	file, err := c.engine.RenameItem(ctx, ownerID, ctx.Param("id"), req.Name)
	c.respondFile(ctx, file, err)
}

func (c *RestController) ToggleFavorite(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	file, err := c.engine.ToggleFavorite(ctx, ownerID, ctx.Param("id"))
	c.respondFile(ctx, file, err)
}

func (c *RestController) MoveToTrash(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	file, err := c.engine.MoveToTrash(ctx, ownerID, ctx.Param("id"))
	c.respondFile(ctx, file, err)
}

func (c *RestController) RestoreFromTrash(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	file, err := c.engine.RestoreFromTrash(ctx, ownerID, ctx.Param("id"))
	c.respondFile(ctx, file, err)
}

func (c *RestController) respondFile(ctx *gin.Context, file *repository.FileRecord, err error) {
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			ctx.Status(http.StatusNotFound)
		case errors.Is(err, lifecycle.ErrUnauthorized):
			ctx.Status(http.StatusForbidden)
		default:
			c.log.With("err", err).Error("file operation failed")
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}
	ctx.JSON(http.StatusOK, file)
}

func (c *RestController) PermanentlyDelete(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	err := c.engine.PermanentlyDelete(ctx, ownerID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			ctx.Status(http.StatusNotFound)
		case errors.Is(err, lifecycle.ErrUnauthorized):
			ctx.Status(http.StatusForbidden)
		default:
			c.log.With("err", err).Error("failed to delete file")
			ctx.Status(http.StatusInternalServerError)
		}
		return
	}
	ctx.Status(http.StatusNoContent)
}

type BatchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (c *RestController) BatchToggleFavorite(ctx *gin.Context) {
	c.batch(ctx, c.engine.BatchToggleFavorite)
}

func (c *RestController) BatchMoveToTrash(ctx *gin.Context) {
	c.batch(ctx, c.engine.BatchMoveToTrash)
}

func (c *RestController) BatchRestoreFromTrash(ctx *gin.Context) {
	c.batch(ctx, c.engine.BatchRestoreFromTrash)
}

func (c *RestController) BatchPermanentlyDelete(ctx *gin.Context) {
	c.batch(ctx, c.engine.BatchPermanentlyDelete)
}

func (c *RestController) batch(
	ctx *gin.Context,
	apply func(ctx context.Context, ownerID string, ids []string) (*lifecycle.BatchResult, error),
) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	var req BatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	result, err := apply(ctx, ownerID, req.IDs)
	if err != nil {
		c.log.With("err", err).Error("batch operation failed")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *RestController) EmptyTrash(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	result, err := c.engine.EmptyTrash(ctx, ownerID)
	if err != nil {
		c.log.With("err", err).Error("failed to empty trash")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

type UsageResponse struct {
	TotalSize   int64           `json:"totalSize"`
	TotalFiles  int             `json:"totalFiles"`
	Breakdown   quota.Breakdown `json:"breakdown"`
	MaxStorage  int64           `json:"maxStorage"`
	UsedPercent float64         `json:"usedPercent"`
}

func (c *RestController) GetUsage(ctx *gin.Context) {
	ownerID, ok := c.ownerID(ctx)
	if !ok {
		return
	}

	usage, err := c.quota.ComputeUsage(ctx, ownerID)
	if err != nil {
		c.log.With("err", err).Error("failed to compute usage")
		ctx.Status(http.StatusInternalServerError)
		return
	}

	maxStorage := c.quota.ResolveQuota(ctx, ownerID)

	ctx.JSON(http.StatusOK, &UsageResponse{
		TotalSize:   usage.TotalSize,
		TotalFiles:  usage.TotalFiles,
		Breakdown:   usage.Breakdown,
		MaxStorage:  maxStorage,
		UsedPercent: quota.UsagePercentage(usage.TotalSize, maxStorage),
	})
}
