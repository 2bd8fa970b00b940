package store

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

type PGIndexConfig struct {
	ConnString string
	TableName  string
	// Dimension may be left zero when the table already holds vectors.
	Dimension int
	BatchSize int
}

// PGIndex keeps the flat index in a pgvector table. Search is an exact scan
// ordered by inner product and then by insertion ordinal. No approximate
// index is created, so results match the in-memory index.
type PGIndex struct {
	config PGIndexConfig
	pool   *pgxpool.Pool
	table  string

	mu       sync.RWMutex
	dim      int
	count    int
	unusable bool
}

var _ types.VectorIndex = (*PGIndex)(nil)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func NewWithConfig(ctx context.Context, config PGIndexConfig) (*PGIndex, error) {
	if config.TableName == "" {
		config.TableName = "contract_chunks"
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, &types.ConfigurationError{
			Field:   "database.table_name",
			Message: fmt.Sprintf("invalid table name %q", config.TableName),
		}
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	idx := &PGIndex{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
		dim:    config.Dimension,
	}

	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (idx *PGIndex) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := idx.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ordinal BIGINT PRIMARY KEY,
			source TEXT NOT NULL,
			contract_id INTEGER NOT NULL,
			paragraph_id INTEGER NOT NULL,
			chunk_id INTEGER NOT NULL,
			contract_title TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector NOT NULL
		)`, idx.table)

	if _, err := idx.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	var dim *int
	query := fmt.Sprintf(`SELECT count(*), min(vector_dims(embedding)) FROM %s`, idx.table)
	if err := idx.pool.QueryRow(ctx, query).Scan(&idx.count, &dim); err != nil {
		return fmt.Errorf("failed to inspect table: %w", err)
	}

	if dim != nil {
		if idx.dim != 0 && idx.dim != *dim {
			return fmt.Errorf("table %s holds vectors of dimension %d, expected %d", idx.config.TableName, *dim, idx.dim)
		}
		idx.dim = *dim
	}

	logger.Info("pgvector table %s holds %d vectors", idx.config.TableName, idx.count)
	return nil
}

// Reset deletes every stored vector.
func (idx *PGIndex) Reset(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", idx.table)); err != nil {
		return fmt.Errorf("failed to truncate table: %w", err)
	}
	idx.count = 0
	idx.unusable = false
	idx.dim = idx.config.Dimension
	return nil
}

// Load appends vectors in a single transaction. On any failure nothing is
// written and the index becomes unusable.
func (idx *PGIndex) Load(ctx context.Context, vectors [][]float32, records []models.Record) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.unusable {
		return types.ErrIndexUnusable
	}
	if len(vectors) != len(records) {
		idx.unusable = true
		return &types.IndexSizeMismatchError{Vectors: len(vectors), Records: len(records)}
	}

	dim := idx.dim
	if dim == 0 && len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			idx.unusable = true
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), dim)
		}
	}

	if err := idx.insert(ctx, vectors, records); err != nil {
		idx.unusable = true
		return err
	}

	idx.dim = dim
	idx.count += len(vectors)
	return nil
}

func (idx *PGIndex) insert(ctx context.Context, vectors [][]float32, records []models.Record) error {
	// Begin transaction
	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (ordinal, source, contract_id, paragraph_id, chunk_id, contract_title, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		idx.table)

	// Insert records in batches
	for start := 0; start < len(records); start += idx.config.BatchSize {
		end := min(start+idx.config.BatchSize, len(records))

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			r := records[i]
			batch.Queue(stmt,
				idx.count+i,
				sanitizeUTF8(r.Source),
				r.ContractID,
				r.ParagraphID,
				r.ChunkID,
				sanitizeUTF8(r.ContractTitle),
				sanitizeUTF8(r.Text),
				pgvector.NewVector(vectors[i]),
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert record %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("failed to insert records: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Search ranks rows by inner product with query. Equal scores keep
// insertion order.
func (idx *PGIndex) Search(ctx context.Context, query []float32, k int) ([]models.Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.unusable {
		return nil, types.ErrIndexUnusable
	}
	if k < 1 {
		return nil, fmt.Errorf("invalid k %d: must be at least 1", k)
	}
	if idx.count == 0 {
		return []models.Hit{}, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), idx.dim)
	}

	// <#> is the negated inner product
	sql := fmt.Sprintf(`
		SELECT ordinal, source, contract_id, paragraph_id, chunk_id, contract_title, content,
			(embedding <#> $1) * -1 AS score
		FROM %s
		ORDER BY embedding <#> $1, ordinal
		LIMIT $2`,
		idx.table)

	rows, err := idx.pool.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]models.Hit, 0, min(k, idx.count))
	for rows.Next() {
		var hit models.Hit
		var ordinal int64
		var score float64
		err := rows.Scan(
			&ordinal,
			&hit.Record.Source,
			&hit.Record.ContractID,
			&hit.Record.ParagraphID,
			&hit.Record.ChunkID,
			&hit.Record.ContractTitle,
			&hit.Record.Text,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hit.Ordinal = int(ordinal)
		hit.Score = float32(score)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	return hits, nil
}

func (idx *PGIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

func (idx *PGIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dim
}

func (idx *PGIndex) Close() {
	if idx.pool != nil {
		idx.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes, which Postgres rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
