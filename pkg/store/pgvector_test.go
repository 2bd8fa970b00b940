package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// getTestIndex connects to CONTRACTQA_TEST_DATABASE_URL, a Postgres server
// with the pgvector extension available.
func getTestIndex(t *testing.T) *PGIndex {
	t.Helper()
	connString := os.Getenv("CONTRACTQA_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("CONTRACTQA_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	idx, err := NewWithConfig(ctx, PGIndexConfig{
		ConnString: connString,
		TableName:  "test_contract_chunks",
		BatchSize:  2,
	})
	require.NoError(t, err)
	require.NoError(t, idx.Reset(ctx))
	t.Cleanup(idx.Close)
	return idx
}

func testRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{
			Source:        "CUAD",
			ContractID:    i,
			ParagraphID:   i % 2,
			ChunkID:       0,
			ContractTitle: fmt.Sprintf("Contract-%d", i),
			Text:          fmt.Sprintf("clause %d", i),
		}
	}
	return records
}

func TestNewWithConfig_InvalidTableName(t *testing.T) {
	_, err := NewWithConfig(context.Background(), PGIndexConfig{
		ConnString: "postgres://localhost:5432/contracts",
		TableName:  "chunks; DROP TABLE users",
	})

	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "database.table_name", cfgErr.Field)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "Licensor", sanitizeUTF8("Licensor"))
	assert.Equal(t, "Licensé", sanitizeUTF8("Licensé"))
	assert.Equal(t, "Lic", sanitizeUTF8("Li\xffc"))
}

func TestPGIndex_LoadAndSearch(t *testing.T) {
	idx := getTestIndex(t)
	ctx := context.Background()

	empty, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	vectors := [][]float32{{0, 1}, {0.6, 0.8}, {0.6, 0.8}, {1, 0}, {-1, 0}}
	require.NoError(t, idx.Load(ctx, vectors, testRecords(len(vectors))))
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 2, idx.Dimension())

	hits, err := idx.Search(ctx, []float32{0.6, 0.8}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Ordinal)
	assert.Equal(t, 2, hits[1].Ordinal)
	assert.Equal(t, 0, hits[2].Ordinal)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Equal(t, "clause 1", hits[0].Record.Text)

	all, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, 4, all[4].Ordinal)
}

func TestPGIndex_SizeMismatch(t *testing.T) {
	idx := getTestIndex(t)
	ctx := context.Background()

	err := idx.Load(ctx, [][]float32{{1, 0}, {0, 1}}, testRecords(1))
	var mismatch *types.IndexSizeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 0, idx.Len())

	_, err = idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, types.ErrIndexUnusable)
}
