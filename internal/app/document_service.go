package app

import (
	"docbrain/internal/model"
)

type documentStore interface {
	GetByID(id uint) (*model.Document, error)
	ListByProjectID(projectID uint) ([]model.Document, error)
	Delete(id uint) error
}

type documentChunkStore interface {
	ListByDocumentID(documentID uint) ([]model.Chunk, error)
	DeleteByDocumentID(documentID uint) error
}

type documentEmbeddingStore interface {
	DeleteByChunkIDs(chunkIDs []uint) error
}

type documentTopicStore interface {
	DeleteChunkTopicsByChunkIDs(chunkIDs []uint) error
}

// DocumentService covers the read and delete side of the document lifecycle.
// Creation and processing live in IngestService.
type DocumentService struct {
	docs       documentStore
	chunks     documentChunkStore
	embeddings documentEmbeddingStore
	topics     documentTopicStore
}

func NewDocumentService(docs documentStore, chunks documentChunkStore, embeddings documentEmbeddingStore, topics documentTopicStore) *DocumentService {
	return &DocumentService{docs: docs, chunks: chunks, embeddings: embeddings, topics: topics}
}

func (s *DocumentService) List(projectID uint) ([]model.Document, error) {
	if projectID == 0 {
		return nil, ErrInvalidInput
	}
	return s.docs.ListByProjectID(projectID)
}

func (s *DocumentService) Get(id uint) (*model.Document, error) {
	doc, err := s.docs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the document together with its chunks, vectors and topic
// links. Topics themselves stay; their weight reflects historical
// assignments and other documents may still link to them.
func (s *DocumentService) Delete(id uint) error {
	doc, err := s.docs.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	chunks, err := s.chunks.ListByDocumentID(doc.ID)
	if err != nil {
		return err
	}
	if len(chunks) > 0 {
		ids := make([]uint, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		if err := s.topics.DeleteChunkTopicsByChunkIDs(ids); err != nil {
			return err
		}
		if err := s.embeddings.DeleteByChunkIDs(ids); err != nil {
			return err
		}
		if err := s.chunks.DeleteByDocumentID(doc.ID); err != nil {
			return err
		}
	}
	return s.docs.Delete(doc.ID)
}
