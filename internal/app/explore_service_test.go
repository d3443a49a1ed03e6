package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbrain/internal/embedding"
	"docbrain/internal/model"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]embedding.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	results := make([]embedding.Result, len(texts))
	for i := range results {
		results[i] = embedding.Result{Vector: f.vector, Model: "fake", Dimension: len(f.vector)}
	}
	return results, nil
}

type fakeExploreChunkStore struct {
	chunks         map[uint]model.Chunk
	keywordResults []model.Chunk
}

func (f *fakeExploreChunkStore) ListByIDs(ids []uint) ([]model.Chunk, error) {
	var out []model.Chunk
	for _, id := range ids {
		if c, ok := f.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeExploreChunkStore) SearchKeyword(projectID uint, query string, limit int) ([]model.Chunk, error) {
	return f.keywordResults, nil
}

type fakeEmbeddingStore struct {
	rows []model.ChunkEmbedding
}

func (f *fakeEmbeddingStore) ListByProjectID(projectID uint) ([]model.ChunkEmbedding, error) {
	return f.rows, nil
}

type fakeDocStore struct{}

func (f *fakeDocStore) GetByID(id uint) (*model.Document, error) {
	return &model.Document{ID: id, Name: "paper.pdf"}, nil
}

func embeddingRow(chunkID uint, vec []float32) model.ChunkEmbedding {
	row := model.ChunkEmbedding{ChunkID: chunkID, Model: "fake", Dimension: len(vec)}
	row.SetVector(vec)
	return row
}

func newExploreService(emb embedder, rows []model.ChunkEmbedding, store *fakeExploreChunkStore, gw gateway) *ExploreService {
	return NewExploreService(store, &fakeEmbeddingStore{rows: rows}, &fakeDocStore{}, emb, gw, 0)
}

func chunkMap(n int) map[uint]model.Chunk {
	m := make(map[uint]model.Chunk, n)
	for i := 1; i <= n; i++ {
		m[uint(i)] = model.Chunk{ID: uint(i), DocumentID: 1, Content: "content"}
	}
	return m
}

func okSynthesis() *fakeGateway {
	return &fakeGateway{responses: []string{`{"title":"T","summary":"S"}`}}
}

func TestSearchEmbedFailureSurfacesVectorUnavailable(t *testing.T) {
	svc := newExploreService(&fakeEmbedder{err: errors.New("no provider")}, nil, &fakeExploreChunkStore{}, okSynthesis())

	_, err := svc.Search(context.Background(), 1, "query", 0)
	assert.ErrorIs(t, err, ErrVectorSearchUnavailable)
}

func TestSearchModeNone(t *testing.T) {
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, nil, &fakeExploreChunkStore{}, okSynthesis())

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	assert.Equal(t, SearchModeNone, res.SearchMode)
	assert.Empty(t, res.Chunks)
}

func TestSearchModeKeyword(t *testing.T) {
	store := &fakeExploreChunkStore{
		keywordResults: []model.Chunk{{ID: 7, DocumentID: 1, Content: "keyword hit"}},
	}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, nil, store, okSynthesis())

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	assert.Equal(t, SearchModeKeyword, res.SearchMode)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, uint(7), res.Chunks[0].Chunk.ID)
	assert.Zero(t, res.Chunks[0].Score)
	assert.Equal(t, "T", res.Title)
}

func TestSearchModeSemanticSortedDescending(t *testing.T) {
	rows := []model.ChunkEmbedding{
		embeddingRow(1, []float32{0, 1}),     // orthogonal, score 0
		embeddingRow(2, []float32{1, 0}),     // identical, score 1
		embeddingRow(3, []float32{0.7, 0.7}), // diagonal
		embeddingRow(4, []float32{-1, 0}),    // opposite, score -1
	}
	store := &fakeExploreChunkStore{chunks: chunkMap(4)}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, rows, store, okSynthesis())

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	assert.Equal(t, SearchModeSemantic, res.SearchMode)
	require.Len(t, res.Chunks, 4)

	assert.Equal(t, uint(2), res.Chunks[0].Chunk.ID)
	assert.Equal(t, 1.0, res.Chunks[0].Score)
	assert.Equal(t, uint(3), res.Chunks[1].Chunk.ID)
	assert.Equal(t, 0.7071, res.Chunks[1].Score, "score must round to 4 decimals")
	assert.Equal(t, uint(4), res.Chunks[3].Chunk.ID)
	assert.Equal(t, -1.0, res.Chunks[3].Score)

	for i := 1; i < len(res.Chunks); i++ {
		assert.GreaterOrEqual(t, res.Chunks[i-1].Score, res.Chunks[i].Score)
	}
	assert.Equal(t, "paper.pdf", res.Chunks[0].DocumentName)
}

func TestSearchTopKBounds(t *testing.T) {
	var rows []model.ChunkEmbedding
	for i := 1; i <= 60; i++ {
		rows = append(rows, embeddingRow(uint(i), []float32{1, 0}))
	}
	store := &fakeExploreChunkStore{chunks: chunkMap(60)}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, rows, store, okSynthesis())

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	assert.Len(t, res.Chunks, defaultSearchTopK)

	res, err = svc.Search(context.Background(), 1, "query", 1000)
	require.NoError(t, err)
	assert.Len(t, res.Chunks, maxSearchTopK, "top-k is hard-capped")
}

func TestSearchMismatchedStoredVectorScoresZero(t *testing.T) {
	rows := []model.ChunkEmbedding{
		embeddingRow(1, []float32{1, 0}),
		embeddingRow(2, []float32{1, 0, 0}), // stored under an older dimension config
	}
	store := &fakeExploreChunkStore{chunks: chunkMap(2)}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, rows, store, okSynthesis())

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, uint(1), res.Chunks[0].Chunk.ID)
	assert.Zero(t, res.Chunks[1].Score)
}

func TestSearchSynthesisFailureKeepsChunks(t *testing.T) {
	rows := []model.ChunkEmbedding{embeddingRow(1, []float32{1, 0})}
	store := &fakeExploreChunkStore{chunks: chunkMap(1)}
	gw := &fakeGateway{errs: []error{errors.New("llm down")}}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, rows, store, gw)

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	assert.Equal(t, SearchModeSemantic, res.SearchMode)
	require.Len(t, res.Chunks, 1)
	assert.Contains(t, res.Summary, "unavailable")
}

func TestSearchMalformedSynthesisDegrades(t *testing.T) {
	rows := []model.ChunkEmbedding{embeddingRow(1, []float32{1, 0})}
	store := &fakeExploreChunkStore{chunks: chunkMap(1)}
	gw := &fakeGateway{responses: []string{"not json"}}
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, rows, store, gw)

	res, err := svc.Search(context.Background(), 1, "query", 0)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Contains(t, res.Summary, "unavailable")
}

func TestSearchInvalidInput(t *testing.T) {
	svc := newExploreService(&fakeEmbedder{vector: []float32{1, 0}}, nil, &fakeExploreChunkStore{}, okSynthesis())

	_, err := svc.Search(context.Background(), 0, "query", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Search(context.Background(), 1, "   ", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
