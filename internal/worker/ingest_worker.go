package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docbrain/internal/app"
	"docbrain/internal/platform/rabbitmq"
)

// IngestWorker consumes queued ingest jobs and runs the document pipeline.
// A failed job is dropped after logging; the document row keeps its last
// status for the operator to inspect and retry.
type IngestWorker struct {
	conn      *amqp.Connection
	ingest    *app.IngestService
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, ingest *app.IngestService, queueName string) *IngestWorker {
	return &IngestWorker{
		conn:      conn,
		ingest:    ingest,
		queueName: queueName,
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
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

func (w *IngestWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.IngestJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode ingest job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	report, err := w.ingest.ProcessDocument(ctx, job.DocumentID)
	if err != nil {
		log.Printf("ingest job %s failed for document %d: %v", job.JobID, job.DocumentID, err)
		_ = d.Nack(false, false)
		return
	}

	log.Printf("ingest job %s done: document %d, %d chunks, %d embedded, topics %d/%d",
		job.JobID, report.DocumentID, report.ChunkCount, report.EmbeddedCount,
		report.TopicExtraction.Processed, report.TopicExtraction.Total)
	_ = d.Ack(false)
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
