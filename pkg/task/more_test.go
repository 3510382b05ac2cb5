package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/journal"
	"imgharvest/pkg/models"
)

func candidates(urls ...string) []models.Candidate {
	out := make([]models.Candidate, 0, len(urls))
	for _, u := range urls {
		out = append(out, models.NewCandidate(u, 1200, 900))
	}
	return out
}

func TestMineTemplatesConfirmsSequence(t *testing.T) {
	mined := MineTemplates(candidates(
		"http://x.test/img_007.jpg",
		"http://x.test/img_013.jpg",
		"http://x.test/photo.jpg",
	), 300)

	require.Len(t, mined, 1)
	assert.Equal(t, "http://x.test/img_", mined[0].Template.Prefix)
	assert.Equal(t, ".jpg", mined[0].Template.Suffix)
	assert.Equal(t, []string{"007", "013"}, mined[0].Values)

	plan, err := planSequence(mined[0], MoreOptions{LowerMargin: 5, UpperMargin: 20, MaxSpan: 500})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 13}, plan.Observed)
}

func TestMineTemplatesSingleSample(t *testing.T) {
	single := MineTemplates(candidates("http://x.test/pic_5.jpg"), 300)
	require.Len(t, single, 1, "one digit run on a new template confirms at once")
	assert.Equal(t, []string{"5"}, single[0].Values)

	twoRuns := MineTemplates(candidates("http://x.test/set2_img05.jpg"), 300)
	assert.Empty(t, twoRuns, "two digit runs need a second sample")

	confirmed := MineTemplates(candidates(
		"http://x.test/set2_img05.jpg",
		"http://x.test/set2_img06.jpg",
	), 300)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "http://x.test/set2_img", confirmed[0].Template.Prefix)
}

func TestMineTemplatesSkipsSmallCandidates(t *testing.T) {
	small := []models.Candidate{
		models.NewCandidate("http://x.test/img_001.jpg", 200, 150),
		models.NewCandidate("http://x.test/img_002.jpg", 300, 300),
	}
	assert.Empty(t, MineTemplates(small, 300))

	tall := []models.Candidate{models.NewCandidate("http://x.test/img_001.jpg", 100, 800)}
	assert.Len(t, MineTemplates(tall, 300), 1)
}

func TestPlanSequence(t *testing.T) {
	opts := MoreOptions{LowerMargin: 5, UpperMargin: 20, MaxSpan: 500}

	tests := []struct {
		name    string
		values  []string
		wantErr bool
		lower   int
		upper   int
		width   int
	}{
		{"padded", []string{"007", "013"}, false, 2, 33, 3},
		{"clamped at one", []string{"2", "3"}, false, 1, 23, 0},
		{"size markers", []string{"100", "1280"}, true, 0, 0, 0},
		{"overflow", []string{"99999999999999999999999"}, true, 0, 0, 0},
		{"too wide", []string{"1", "900"}, true, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSequence(MinedTemplate{
				Template: models.LinkTemplate{Prefix: "http://x.test/img_", Suffix: ".jpg"},
				Values:   tt.values,
			}, opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lower, plan.Template.Lower)
			assert.Equal(t, tt.upper, plan.Upper)
			assert.Equal(t, tt.width, plan.Template.Width)
		})
	}
}

func TestFindMoreSpawnsSequence(t *testing.T) {
	f := &fakeFetcher{size: func(u string) int64 { return int64(3000 + indexOf(u)) }}
	j, rec := newJournal()
	require.NoError(t, j.Start())

	done := FindMore(context.Background(), j, f, candidates(
		"http://x.test/img_007.jpg",
		"http://x.test/img_013.jpg",
		"http://x.test/photo.jpg",
	), MoreOptions{Folder: "out", LowerMargin: 0, UpperMargin: 2, MaxSpan: 100, FailThreshold: 3})

	var got []int
	for _, u := range f.visited {
		got = append(got, indexOf(u))
	}
	assert.True(t, done)
	assert.Equal(t, []int{8, 9, 10, 11, 12, 14, 15}, got)
	assert.Equal(t, "http://x.test/img_008.jpg", f.visited[0])

	snap := j.Snapshot()
	assert.Equal(t, 7, snap.Successes)
	assert.Equal(t, 7, snap.Progress)
	assert.LessOrEqual(t, snap.Progress, snap.Workload)
	assert.True(t, rec.contains(journal.Info, "Sequence http://x.test/img_{007}"))
}

func TestFindMoreWarnsOnWideSpan(t *testing.T) {
	f := &fakeFetcher{size: func(string) int64 { return 1 }}
	j, rec := newJournal()

	FindMore(context.Background(), j, f, candidates(
		"http://x.test/img_1.jpg",
		"http://x.test/img_900.jpg",
	), MoreOptions{MaxSpan: 50})

	assert.Empty(t, f.visited)
	assert.True(t, rec.contains(journal.Warning, "exceeds the limit"))
}

func TestFindMoreStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{size: func(u string) int64 {
		if indexOf(u) == 9 {
			cancel()
		}
		return int64(3000 + indexOf(u))
	}}
	j, _ := newJournal()
	require.NoError(t, j.Start())

	done := FindMore(ctx, j, f, candidates(
		"http://x.test/img_007.jpg",
		"http://x.test/img_013.jpg",
	), MoreOptions{UpperMargin: 2, MaxSpan: 100, FailThreshold: 3})

	assert.False(t, done)
	assert.Len(t, f.visited, 2)
	assert.Equal(t, 2, j.Snapshot().Successes)
}
