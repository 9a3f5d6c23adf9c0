package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cerebro/internal/cancel"
	"cerebro/internal/types"
)

func TestScorePrefersKeepTokenOverGhostToken(t *testing.T) {
	now := time.Now()
	groups := []types.DuplicateGroup{
		{Items: []types.DuplicateItem{
			{Path: "/photos/final.jpg", SizeBytes: 100, ModTime: now},
			{Path: "/photos/final (copy).jpg", SizeBytes: 100, ModTime: now},
		}},
	}

	Score(groups, types.PipelineRequest{}, cancel.New())

	items := groups[0].Items
	assert.Greater(t, items[0].Score, items[1].Score)
	assert.Equal(t, "keeper:semantic", items[0].Label)
}

func TestScorePrefersLargerFile(t *testing.T) {
	now := time.Now()
	groups := []types.DuplicateGroup{
		{Items: []types.DuplicateItem{
			{Path: "/a.jpg", SizeBytes: 100, ModTime: now},
			{Path: "/b.jpg", SizeBytes: 500, ModTime: now},
		}},
	}

	Score(groups, types.PipelineRequest{}, cancel.New())

	assert.Greater(t, groups[0].Items[1].Score, groups[0].Items[0].Score)
}

func TestScoreNostalgicIntentPrefersOlderFile(t *testing.T) {
	older := time.Now().Add(-24 * time.Hour)
	newer := time.Now()
	groups := []types.DuplicateGroup{
		{Items: []types.DuplicateItem{
			{Path: "/a.jpg", SizeBytes: 100, ModTime: newer},
			{Path: "/b.jpg", SizeBytes: 100, ModTime: older},
		}},
	}

	Score(groups, types.PipelineRequest{ScanIntent: "nostalgic"}, cancel.New())

	assert.Greater(t, groups[0].Items[1].Score, groups[0].Items[0].Score)
}

func TestScoreSkipsSingletonGroups(t *testing.T) {
	groups := []types.DuplicateGroup{
		{Items: []types.DuplicateItem{{Path: "/only.jpg", SizeBytes: 100}}},
	}

	Score(groups, types.PipelineRequest{}, cancel.New())

	assert.Zero(t, groups[0].Items[0].Score)
}

func TestTokenScoreSignForGhostAndKeepTokens(t *testing.T) {
	assert.Less(t, tokenScore("vacation_copy"), 0.0)
	assert.Greater(t, tokenScore("vacation_final"), 0.0)
}

func TestRankBestToWorst(t *testing.T) {
	ranks := rank([]float64{10, 30, 20}, true)
	require.Len(t, ranks, 3)
	assert.Equal(t, 1.0, ranks[1])
	assert.Equal(t, 0.0, ranks[0])
}
