package main

import (
	"log"

	"github.com/blkmlk/file-dashboard/internal/services/quota"

	"github.com/blkmlk/file-dashboard/internal/services/blobstore"
	"github.com/blkmlk/file-dashboard/internal/services/lifecycle"
	"github.com/blkmlk/file-dashboard/internal/services/repository"

	"github.com/blkmlk/file-dashboard/deps"
	"github.com/blkmlk/file-dashboard/internal/services/api"
	"github.com/blkmlk/file-dashboard/internal/services/api/controllers"
	"go.uber.org/dig"
)

func main() {
	container := dig.New()

	container.Provide(deps.NewZapLogger)
	container.Provide(deps.NewDB)
	container.Provide(deps.NewS3Client)
	container.Provide(repository.New)
	container.Provide(blobstore.NewS3)
	container.Provide(lifecycle.New)
	container.Provide(func(repo repository.Repository) quota.PlanSource {
		return repo
	})
	container.Provide(quota.New)
	container.Provide(controllers.NewRestController)
	container.Provide(api.New)

	var listener api.API
	err := container.Invoke(func(a api.API) {
		listener = a
	})
	if err != nil {
		log.Fatal(err)
	}

	if err = listener.Start(); err != nil {
		log.Fatal(err)
	}
}
