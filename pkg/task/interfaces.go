package task

import (
	"context"

	"imgharvest/pkg/downloader"
	"imgharvest/pkg/search"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_task.go

// Fetcher downloads one URL into one validated file
type Fetcher interface {
	Download(ctx context.Context, rawURL, folder, filename, ext string) (*downloader.File, error)
	SetListener(l downloader.EventListener)
}

// Searcher runs a reverse-image search for a local file
type Searcher interface {
	Search(ctx context.Context, path string) (search.Result, error)
}

// Mover sets a file aside in a subfolder next to it
type Mover interface {
	MoveToSubfolder(path, subfolder string) (string, error)
}
