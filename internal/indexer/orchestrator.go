// Package indexer (re)builds a document's vector index from its extracted
// text, decoupled from the upload request that triggered it.
package indexer

import (
	"context"
	"fmt"
	"log"

	"pdfqa/internal/chunker"
)

// Rebuilder replaces a document's collection with freshly embedded chunks.
type Rebuilder interface {
	Rebuild(ctx context.Context, documentID uint, chunks []string) error
}

type Orchestrator struct {
	store        Rebuilder
	chunkSize    int
	chunkOverlap int
}

func NewOrchestrator(store Rebuilder, chunkSize, chunkOverlap int) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunker.DefaultChunkOverlap
	}
	return &Orchestrator{
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Index chunks rawText and rebuilds the document's collection. Zero chunks
// is a no-op, not a failure: the index stays absent and later queries see
// the collection-not-found condition.
func (o *Orchestrator) Index(ctx context.Context, documentID uint, rawText string) error {
	chunks := chunker.Split(rawText, o.chunkSize, o.chunkOverlap)
	if len(chunks) == 0 {
		log.Printf("document %d produced no chunks, nothing to index", documentID)
		return nil
	}

	if err := o.store.Rebuild(ctx, documentID, chunks); err != nil {
		return fmt.Errorf("index document %d failed: %w", documentID, err)
	}
	log.Printf("indexed document %d: %d chunks", documentID, len(chunks))
	return nil
}
