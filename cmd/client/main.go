package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/blkmlk/file-dashboard/deps"
	"github.com/blkmlk/file-dashboard/internal/services/cache"
	"github.com/blkmlk/file-dashboard/internal/services/uploader"
	"go.uber.org/dig"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: client <file> [<file>...]")
	}

	container := dig.New()

	container.Provide(deps.NewZapLogger)
	container.Provide(cache.NewMapCache)
	container.Provide(uploader.NewHTTPClient)
	container.Provide(uploader.NewTracker)
	container.Provide(uploader.DefaultConfig)
	container.Provide(uploader.NewOrchestrator)

	var orchestrator *uploader.Orchestrator
	err := container.Invoke(func(o *uploader.Orchestrator) {
		orchestrator = o
	})
	if err != nil {
		log.Fatal(err)
	}

	files := make([]uploader.File, 0, len(os.Args)-1)
	for _, path := range os.Args[1:] {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatal(err)
		}

		files = append(files, uploader.File{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) {
				return os.Open(path)
			},
		})
	}

	ownerID := os.Getenv("OWNER_ID")
	if ownerID == "" {
		log.Fatal("OWNER_ID is not set")
	}

	results := orchestrator.UploadMany(context.Background(), ownerID, nil, files)
	for _, result := range results {
		if result.Err != nil {
			log.Printf("%s: failed: %v", result.FileName, result.Err)
			continue
		}
		log.Printf("%s: uploaded as %s", result.FileName, result.FileID)
	}
}
