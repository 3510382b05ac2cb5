package task

import (
	"context"

	"github.com/dustin/go-humanize"

	"imgharvest/pkg/downloader"
	"imgharvest/pkg/journal"
	"imgharvest/pkg/models"
)

// LargerOptions tunes the "find larger copies" strategy
type LargerOptions struct {
	Folder          string
	DimensionRatio  float64
	FilesizeRatio   float64
	AttentionSubdir string
}

// FindLarger downloads the largest candidate exceeding source by the
// dimension ratio. A download smaller on disk than the source times the
// filesize ratio is moved to the attention subfolder and the next best
// candidate is tried. It returns nil when nothing larger was saved.
func FindLarger(ctx context.Context, j *journal.Journal, fetcher Fetcher, mover Mover,
	source models.SourceImage, candidates []models.Candidate, opts LargerOptions) *downloader.File {
	remaining := append([]models.Candidate(nil), candidates...)
	tried := 0

	for ctx.Err() == nil {
		idx := pickLarger(remaining, source, opts.DimensionRatio)
		if idx < 0 {
			if tried == 0 {
				j.Info("no larger image found for %s (%dx%d)", source.Path, source.Width, source.Height)
			} else {
				j.Info("no new images found for %s", source.Path)
			}
			return nil
		}
		c := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		tried++

		f, err := fetcher.Download(ctx, c.URL, opts.Folder, c.Filename, c.Extension)
		if err != nil {
			j.Failure()
			continue
		}
		c.ByteSize = f.Size

		if float64(f.Size) < opts.FilesizeRatio*float64(source.ByteSize) {
			j.Failure()
			moved, err := mover.MoveToSubfolder(f.Path, opts.AttentionSubdir)
			if err != nil {
				j.Error("could not move %s aside: %v", f.Path, err)
				continue
			}
			j.Warn("%dx%d image is only %s against %s of the source, moved to %s",
				c.Width, c.Height, humanize.Bytes(uint64(f.Size)), humanize.Bytes(uint64(source.ByteSize)), moved)
			continue
		}

		j.Success()
		j.Info("found larger image %dx%d for %s", c.Width, c.Height, source.Path)
		return f
	}
	return nil
}

// pickLarger returns the index of the largest-area candidate exceeding the
// source by ratio, or -1
func pickLarger(candidates []models.Candidate, source models.SourceImage, ratio float64) int {
	best := -1
	for i, c := range candidates {
		if !c.Exceeds(source.Width, source.Height, ratio) {
			continue
		}
		if best < 0 || c.Area() > candidates[best].Area() {
			best = i
		}
	}
	return best
}
