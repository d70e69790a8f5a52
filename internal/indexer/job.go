package indexer

import "context"

// Job asks the index worker to (re)build one document's collection from its
// extracted text on disk. Carrying the path keeps queue payloads small.
type Job struct {
	DocumentID uint   `json:"document_id"`
	TextPath   string `json:"text_path"`
}

// JobPublisher hands a job to the queue; the upload handler returns to its
// caller without waiting for indexing to complete.
type JobPublisher interface {
	Publish(ctx context.Context, job Job) error
}
