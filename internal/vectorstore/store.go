// Package vectorstore keeps one vector collection per document and answers
// top-k similarity queries against it. Collections are replaced wholesale on
// reindex so a document is never servable from a mix of old and new chunks.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pdfqa/internal/model"
)

// ErrCollectionNotFound signals that no collection exists for a document:
// indexing has not completed or failed. Distinct from a query that ran and
// matched nothing.
var ErrCollectionNotFound = errors.New("vector collection not found")

// CollectionName derives the collection name for a document id. The name is
// the only coupling between the relational document record and the vectors.
func CollectionName(documentID uint) string {
	return fmt.Sprintf("doc_collection_%d", documentID)
}

// Embedder converts text into fixed-dimension vectors. The same model must
// embed both chunks and queries for scores to be comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Repo is the persistence surface the store needs. ReplaceCollection must be
// atomic: after it returns the collection holds exactly the given chunks.
type Repo interface {
	GetCollection(ctx context.Context, name string) (*model.VectorCollection, error)
	ReplaceCollection(ctx context.Context, col *model.VectorCollection, chunks []model.VectorChunk) error
	DeleteCollection(ctx context.Context, name string) error
	ListChunks(ctx context.Context, collectionID uint) ([]model.VectorChunk, error)
}

// Result is one retrieved chunk with its cosine similarity to the query.
type Result struct {
	Content string
	Score   float32
}

const DefaultTopK = 3

type Store struct {
	repo      Repo
	embedder  Embedder
	batchSize int
}

func New(repo Repo, embedder Embedder, embedBatchSize int) *Store {
	if embedBatchSize <= 0 {
		embedBatchSize = 10
	}
	return &Store{
		repo:      repo,
		embedder:  embedder,
		batchSize: embedBatchSize,
	}
}

// Rebuild replaces the document's collection with freshly embedded chunks.
// All embeddings are computed before any row is touched, so a failed embed
// leaves the previous collection intact and a failed swap leaves either the
// old complete collection or none.
func (s *Store) Rebuild(ctx context.Context, documentID uint, chunks []string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("rebuild requires at least one chunk")
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return fmt.Errorf("embed chunks %d..%d failed: %w", i, end, err)
		}
		embeddings = append(embeddings, batch...)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	col := &model.VectorCollection{
		Name:       CollectionName(documentID),
		DocumentID: documentID,
		Dimension:  len(embeddings[0]),
		ChunkCount: len(chunks),
	}
	rows := make([]model.VectorChunk, len(chunks))
	for i := range chunks {
		rows[i] = model.VectorChunk{
			Position: i,
			Content:  chunks[i],
		}
		rows[i].SetEmbedding(embeddings[i])
	}

	if err := s.repo.ReplaceCollection(ctx, col, rows); err != nil {
		return fmt.Errorf("replace collection %s failed: %w", col.Name, err)
	}
	return nil
}

// Query embeds queryText and returns the k most similar chunks by cosine
// similarity, most similar first. Returns ErrCollectionNotFound when the
// document has no collection.
func (s *Store) Query(ctx context.Context, documentID uint, queryText string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	name := CollectionName(documentID)
	col, err := s.repo.GetCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get collection %s failed: %w", name, err)
	}
	if col == nil {
		return nil, fmt.Errorf("collection %s: %w", name, ErrCollectionNotFound)
	}

	queryVec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	chunks, err := s.repo.ListChunks(ctx, col.ID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s failed: %w", name, err)
	}

	results := make([]Result, len(chunks))
	for i := range chunks {
		results[i] = Result{
			Content: chunks[i].Content,
			Score:   cosineSimilarity(queryVec, chunks[i].EmbeddingVector()),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Delete removes the document's collection; no-op if absent.
func (s *Store) Delete(ctx context.Context, documentID uint) error {
	name := CollectionName(documentID)
	if err := s.repo.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s failed: %w", name, err)
	}
	return nil
}
