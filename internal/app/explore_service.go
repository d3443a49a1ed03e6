package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"docbrain/internal/embedding"
	"docbrain/internal/llm"
	"docbrain/internal/model"
)

const (
	defaultSearchTopK = 15
	maxSearchTopK     = 50
)

// Search modes reported to the caller.
const (
	SearchModeSemantic = "semantic"
	SearchModeKeyword  = "keyword"
	SearchModeNone     = "none"
)

type embedder interface {
	Embed(ctx context.Context, texts []string) ([]embedding.Result, error)
}

type exploreChunkStore interface {
	ListByIDs(ids []uint) ([]model.Chunk, error)
	SearchKeyword(projectID uint, query string, limit int) ([]model.Chunk, error)
}

type embeddingStore interface {
	ListByProjectID(projectID uint) ([]model.ChunkEmbedding, error)
}

type exploreDocStore interface {
	GetByID(id uint) (*model.Document, error)
}

// ExploreService answers free-form queries against a project's chunks:
// vector search when embeddings exist, keyword search otherwise, with an
// LLM-synthesized title and summary on top of the retrieved chunks.
type ExploreService struct {
	chunks     exploreChunkStore
	embeddings embeddingStore
	docs       exploreDocStore
	embedder   embedder
	gateway    gateway
	topK       int
}

func NewExploreService(chunks exploreChunkStore, embeddings embeddingStore, docs exploreDocStore, emb embedder, gw gateway, topK int) *ExploreService {
	if topK <= 0 {
		topK = defaultSearchTopK
	}
	return &ExploreService{
		chunks:     chunks,
		embeddings: embeddings,
		docs:       docs,
		embedder:   emb,
		gateway:    gw,
		topK:       topK,
	}
}

// ScoredChunk is one retrieved chunk with its similarity (0 in keyword mode).
type ScoredChunk struct {
	Chunk        model.Chunk `json:"chunk"`
	DocumentName string      `json:"document_name"`
	Score        float64     `json:"score"`
}

type SearchResult struct {
	Title      string        `json:"title"`
	Summary    string        `json:"summary"`
	Chunks     []ScoredChunk `json:"chunks"`
	SearchMode string        `json:"search_mode"`
}

// Search retrieves the most relevant chunks for the query. Retrieval results
// are never discarded because synthesis failed; synthesis degrades to a
// placeholder summary instead.
func (s *ExploreService) Search(ctx context.Context, projectID uint, query string, topK int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if projectID == 0 || query == "" {
		return nil, ErrInvalidInput
	}
	if topK <= 0 {
		topK = s.topK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}

	// A failing query embed means configuration trouble worth surfacing,
	// not silently degrading to keyword results.
	queryResults, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(queryResults) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrVectorSearchUnavailable, err)
	}
	queryVec := queryResults[0].Vector

	stored, err := s.embeddings.ListByProjectID(projectID)
	if err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		return s.keywordSearch(ctx, projectID, query, topK)
	}

	scored := s.rankBySimilarity(queryVec, stored, topK)
	if len(scored) == 0 {
		return s.keywordSearch(ctx, projectID, query, topK)
	}

	result := &SearchResult{Chunks: scored, SearchMode: SearchModeSemantic}
	s.synthesize(ctx, query, result)
	return result, nil
}

func (s *ExploreService) keywordSearch(ctx context.Context, projectID uint, query string, topK int) (*SearchResult, error) {
	chunks, err := s.chunks.SearchKeyword(projectID, query, topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &SearchResult{Chunks: []ScoredChunk{}, SearchMode: SearchModeNone}, nil
	}

	scored := make([]ScoredChunk, len(chunks))
	names := s.documentNames(chunks)
	for i, c := range chunks {
		scored[i] = ScoredChunk{Chunk: c, DocumentName: names[c.DocumentID]}
	}

	result := &SearchResult{Chunks: scored, SearchMode: SearchModeKeyword}
	s.synthesize(ctx, query, result)
	return result, nil
}

// rankBySimilarity scores every stored vector against the query and returns
// the topK chunks sorted by descending similarity. Vectors stored under an
// older dimension configuration score 0 instead of failing the search.
func (s *ExploreService) rankBySimilarity(queryVec []float32, stored []model.ChunkEmbedding, topK int) []ScoredChunk {
	type scoredID struct {
		chunkID uint
		score   float64
	}
	scores := make([]scoredID, 0, len(stored))
	for _, e := range stored {
		sim, err := embedding.Cosine(queryVec, e.VectorData())
		if err != nil {
			log.Printf("skip chunk %d in ranking: %v", e.ChunkID, err)
			sim = 0
		}
		scores = append(scores, scoredID{chunkID: e.ChunkID, score: sim})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if topK < len(scores) {
		scores = scores[:topK]
	}

	ids := make([]uint, len(scores))
	for i, sc := range scores {
		ids[i] = sc.chunkID
	}
	chunks, err := s.chunks.ListByIDs(ids)
	if err != nil {
		log.Printf("load ranked chunks failed: %v", err)
		return nil
	}
	byID := make(map[uint]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	names := s.documentNames(chunks)

	out := make([]ScoredChunk, 0, len(scores))
	for _, sc := range scores {
		c, ok := byID[sc.chunkID]
		if !ok {
			continue
		}
		out = append(out, ScoredChunk{
			Chunk:        c,
			DocumentName: names[c.DocumentID],
			Score:        roundScore(sc.score),
		})
	}
	return out
}

type synthesisPayload struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// synthesize fills Title/Summary from the LLM; on any failure the retrieved
// chunks stay and the summary degrades to a placeholder.
func (s *ExploreService) synthesize(ctx context.Context, query string, result *SearchResult) {
	raw, err := s.gateway.Call(ctx, synthesisPrompt(query, result.Chunks), llm.TaskExploration, synthesisSchema())
	if err == nil {
		var payload synthesisPayload
		if decodeErr := llm.DecodeStructured(raw, &payload); decodeErr == nil {
			result.Title = payload.Title
			result.Summary = payload.Summary
			return
		}
		err = fmt.Errorf("synthesis output rejected")
	}
	log.Printf("search synthesis degraded: %v", err)
	result.Title = query
	result.Summary = "Summary unavailable; showing retrieved passages only."
}

func (s *ExploreService) documentNames(chunks []model.Chunk) map[uint]string {
	names := make(map[uint]string)
	for _, c := range chunks {
		if _, ok := names[c.DocumentID]; ok {
			continue
		}
		doc, err := s.docs.GetByID(c.DocumentID)
		if err != nil || doc == nil {
			names[c.DocumentID] = ""
			continue
		}
		names[c.DocumentID] = doc.Name
	}
	return names
}

func synthesisPrompt(query string, chunks []ScoredChunk) []llm.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for _, sc := range chunks {
		fmt.Fprintf(&b, "--- [%s, similarity %.4f]\n%s\n", sc.DocumentName, sc.Score, sc.Chunk.Content)
	}

	system := "You answer questions from retrieved document passages. Produce a short " +
		"title and a grounded summary. Use only the passages; if they are insufficient, " +
		"say so in the summary."

	return []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}
}

func synthesisSchema() *llm.JSONSchema {
	return &llm.JSONSchema{
		Name: "search_answer",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title":   map[string]interface{}{"type": "string"},
				"summary": map[string]interface{}{"type": "string"},
			},
			"required":             []string{"title", "summary"},
			"additionalProperties": false,
		},
	}
}

func roundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
