package task

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/downloader"
	"imgharvest/pkg/journal"
	"imgharvest/pkg/models"
	mock_task "imgharvest/pkg/task/mocks"
)

var largerOpts = LargerOptions{Folder: "out", DimensionRatio: 1.05, FilesizeRatio: 1.0, AttentionSubdir: "attention"}

func TestFindLargerMovesSmallFileAside(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := models.SourceImage{Path: "src.jpg", Width: 800, Height: 600, ByteSize: 50000}
	cands := []models.Candidate{
		models.NewCandidate("http://x.test/a.jpg", 1000, 900),
		models.NewCandidate("http://x.test/b.jpg", 700, 500),
	}

	fetcher := mock_task.NewMockFetcher(ctrl)
	fetcher.EXPECT().
		Download(gomock.Any(), "http://x.test/a.jpg", "out", "a", "jpg").
		Return(&downloader.File{URL: "http://x.test/a.jpg", Path: "out/a.jpg", Size: 10000}, nil).
		Times(1)

	mover := mock_task.NewMockMover(ctrl)
	mover.EXPECT().MoveToSubfolder("out/a.jpg", "attention").Return("out/attention/a.jpg", nil).Times(1)

	j, rec := newJournal()
	require.NoError(t, j.Start())

	f := FindLarger(context.Background(), j, fetcher, mover, source, cands, largerOpts)

	assert.Nil(t, f)
	assert.True(t, rec.contains(journal.Warning, "out/attention/a.jpg"))
	assert.True(t, rec.contains(journal.Info, "no new images found"))
	assert.Equal(t, 0, j.Snapshot().Successes)
}

func TestFindLargerPicksLargestAndRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := models.SourceImage{Path: "src.jpg", Width: 800, Height: 600, ByteSize: 50000}
	cands := []models.Candidate{
		models.NewCandidate("http://x.test/mid.jpg", 1200, 900),
		models.NewCandidate("http://x.test/nominal.jpg", 801, 601),
		models.NewCandidate("http://x.test/big.jpg", 2400, 1800),
	}

	fetcher := mock_task.NewMockFetcher(ctrl)
	gomock.InOrder(
		fetcher.EXPECT().
			Download(gomock.Any(), "http://x.test/big.jpg", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, assert.AnError),
		fetcher.EXPECT().
			Download(gomock.Any(), "http://x.test/mid.jpg", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&downloader.File{Path: "out/mid.jpg", Size: 90000}, nil),
	)
	mover := mock_task.NewMockMover(ctrl)

	j, rec := newJournal()
	require.NoError(t, j.Start())

	f := FindLarger(context.Background(), j, fetcher, mover, source, cands, largerOpts)

	require.NotNil(t, f)
	assert.Equal(t, "out/mid.jpg", f.Path)
	snap := j.Snapshot()
	assert.Equal(t, 1, snap.Successes)
	assert.Equal(t, 1, snap.Failures)
	assert.True(t, rec.contains(journal.Info, "found larger image 1200x900"))
}

func TestFindLargerNothingQualifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := models.SourceImage{Width: 800, Height: 600, ByteSize: 50000}
	j, rec := newJournal()

	f := FindLarger(context.Background(), j, mock_task.NewMockFetcher(ctrl), mock_task.NewMockMover(ctrl),
		source, []models.Candidate{models.NewCandidate("http://x.test/b.jpg", 700, 500)}, largerOpts)

	assert.Nil(t, f)
	assert.True(t, rec.contains(journal.Info, "no larger image found"))
	assert.Equal(t, 0, j.Snapshot().Failures)
}
