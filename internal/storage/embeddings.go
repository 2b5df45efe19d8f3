package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scribeflow/scribeflow/internal/service"
)

// SavePatternEmbedding stores one pattern summary with its embedding
// vector, encoded as little-endian float64s.
func (s *SQLiteStorage) SavePatternEmbedding(ctx context.Context, patternID string, summary string, vector []float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(patternID, "patternID"); err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector", ErrNilParameter)
	}

	var authorID string
	err := s.db.QueryRowContext(ctx, `SELECT author_id FROM correction_patterns WHERE id = ?`, patternID).Scan(&authorID)
	if err != nil {
		return fmt.Errorf("failed to resolve pattern author: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pattern_embeddings (pattern_id, author_id, summary, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pattern_id) DO UPDATE SET
			summary = excluded.summary,
			vector = excluded.vector
	`, patternID, authorID, summary, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to save pattern embedding: %w", err)
	}

	return nil
}

// ListPatternEmbeddings returns every stored embedding for an author.
func (s *SQLiteStorage) ListPatternEmbeddings(ctx context.Context, authorID string) ([]service.PatternEmbedding, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(authorID, "authorID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern_id, author_id, summary, vector
		FROM pattern_embeddings
		WHERE author_id = ?
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pattern embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings []service.PatternEmbedding
	for rows.Next() {
		var embedding service.PatternEmbedding
		var blob []byte
		if err := rows.Scan(&embedding.PatternID, &embedding.AuthorID, &embedding.Summary, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan pattern embedding: %w", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", embedding.PatternID, err)
		}
		embedding.Vector = vector
		embeddings = append(embeddings, embedding)
	}

	return embeddings, rows.Err()
}

// encodeVector packs a float64 slice into a little-endian blob.
func encodeVector(vector []float64) []byte {
	buf := make([]byte, 8*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float64 slice.
func decodeVector(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("malformed embedding blob of %d bytes", len(blob))
	}
	vector := make([]float64, len(blob)/8)
	reader := bytes.NewReader(blob)
	if err := binary.Read(reader, binary.LittleEndian, &vector); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vector, nil
}
