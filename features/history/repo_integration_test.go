package history_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lookout/features/history"
	"lookout/internal/testutils"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx := context.Background()
	repo := history.NewPostgresRepo(s.DB)

	rec := &history.Record{
		QueryID:     "run-1",
		Query:       "rust ownership model",
		SourceCount: 4,
		ChunkCount:  17,
		Degraded:    true,
		LatencyMs:   2410,
	}
	require.NoError(t, repo.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	records, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run-1", records[0].QueryID)
	assert.Equal(t, 17, records[0].ChunkCount)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
