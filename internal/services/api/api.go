package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blkmlk/file-dashboard/env"
	"github.com/blkmlk/file-dashboard/internal/services/api/controllers"
)

type API interface {
	Start() error
	Stop() error
}

const (
	PathUploadFile   = "/api/v1/upload"
	PathFiles        = "/api/v1/files"
	PathFolders      = "/api/v1/folders"
	PathFavorites    = "/api/v1/files/favorites"
	PathTrash        = "/api/v1/files/trash"
	PathRecent       = "/api/v1/files/recent"
	PathBatch        = "/api/v1/files/batch"
	PathUsage        = "/api/v1/usage"
	PathEmptyTrash   = "/api/v1/trash"
	PathFileByID     = "/api/v1/files/:id"
	PathFileRename   = "/api/v1/files/:id/rename"
	PathFileFavorite = "/api/v1/files/:id/favorite"
	PathFileTrash    = "/api/v1/files/:id/trash"
	PathFileRestore  = "/api/v1/files/:id/restore"
)

type api struct {
	restHost       string
	restController *controllers.RestController
	restServer     *gin.Engine
	httpServer     *http.Server
}

func New(
	restController *controllers.RestController,
) (API, error) {
	restHost, err := env.Get(env.RestHost)
	if err != nil {
		return nil, err
	}

	a := api{
		restHost:       restHost,
		restController: restController,
		restServer:     gin.Default(),
	}

	a.initRest()

	return &a, nil
}

func (a *api) initRest() {
	a.restServer.POST(PathUploadFile, a.restController.UploadFile)

	a.restServer.GET(PathFiles, a.restController.ListFiles)
	a.restServer.GET(PathFavorites, a.restController.ListFavorites)
	a.restServer.GET(PathTrash, a.restController.ListTrash)
	a.restServer.GET(PathRecent, a.restController.ListRecent)
	a.restServer.GET(PathUsage, a.restController.GetUsage)

	a.restServer.POST(PathFolders, a.restController.CreateFolder)
	a.restServer.PATCH(PathFileRename, a.restController.RenameItem)
	a.restServer.PATCH(PathFileFavorite, a.restController.ToggleFavorite)
	a.restServer.PATCH(PathFileTrash, a.restController.MoveToTrash)
	a.restServer.PATCH(PathFileRestore, a.restController.RestoreFromTrash)
	a.restServer.DELETE(PathFileByID, a.restController.PermanentlyDelete)

	a.restServer.POST(PathBatch+"/favorite", a.restController.BatchToggleFavorite)
	a.restServer.POST(PathBatch+"/trash", a.restController.BatchMoveToTrash)
	a.restServer.POST(PathBatch+"/restore", a.restController.BatchRestoreFromTrash)
	a.restServer.POST(PathBatch+"/delete", a.restController.BatchPermanentlyDelete)
	a.restServer.DELETE(PathEmptyTrash, a.restController.EmptyTrash)
}

func (a *api) Start() error {
	a.httpServer = &http.Server{
		Addr:    a.restHost,
		Handler: a.restServer,
	}

	return a.httpServer.ListenAndServe()
}

func (a *api) Stop() error {
	if a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(context.Background())
}
