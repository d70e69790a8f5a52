package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"pdfqa/internal/indexer"
)

// IndexWorker consumes document index jobs and runs the orchestrator for
// each, off the upload request path. A job failure is nacked without
// requeue: the index stays absent and queries report the collection as
// missing until the document is re-uploaded.
type IndexWorker struct {
	conn         *amqp.Connection
	orchestrator *indexer.Orchestrator
	queueName    string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIndexWorker(conn *amqp.Connection, orchestrator *indexer.Orchestrator, queueName string) *IndexWorker {
	return &IndexWorker{
		conn:         conn,
		orchestrator: orchestrator,
		queueName:    queueName,
	}
}

func (w *IndexWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *IndexWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job indexer.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode index job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	rawText, err := os.ReadFile(job.TextPath)
	if err != nil {
		log.Printf("worker read text for document %d failed: %v", job.DocumentID, err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.orchestrator.Index(ctx, job.DocumentID, string(rawText)); err != nil {
		log.Printf("worker index document %d failed: %v", job.DocumentID, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *IndexWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
