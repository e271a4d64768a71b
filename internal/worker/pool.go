package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"admin-dashboard/internal/models"
	"admin-dashboard/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const taskTimeout = 5 * time.Minute

type TaskProcessor interface {
	ProcessUpload(ctx context.Context, task models.TaskMessage) error
}

// Run consumes deliveries with size workers until msgs is closed or ctx is
// done, then waits for in-flight tasks. Malformed messages are discarded.
// Processed messages are acknowledged whether or not processing succeeded,
// unless ctx was cancelled mid-task, in which case they are requeued.
func Run(ctx context.Context, msgs <-chan amqp.Delivery, proc TaskProcessor, size int) {
	var wg sync.WaitGroup
	for i := 0; i < size; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log := logger.Logger.With().Int("worker", workerID).Logger()
			log.Info().Msg("worker started")

			for {
				select {
				case <-ctx.Done():
					log.Info().Msg("worker stopped")
					return
				case msg, ok := <-msgs:
					if !ok {
						log.Info().Msg("delivery channel closed")
						return
					}
					handle(ctx, msg, proc, log)
				}
			}
		}(i + 1)
	}
	wg.Wait()
}

func handle(ctx context.Context, msg amqp.Delivery, proc TaskProcessor, log zerolog.Logger) {
	var task models.TaskMessage
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal message")
		_ = msg.Nack(false, false)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	err := proc.ProcessUpload(taskCtx, task)
	cancel()

	if err != nil && ctx.Err() != nil {
		log.Warn().Err(err).Str("upload_id", task.UploadID).Msg("upload interrupted, requeueing")
		if err := msg.Nack(false, true); err != nil {
			log.Warn().Err(err).Msg("failed to nack message")
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Str("upload_id", task.UploadID).Msg("failed to process upload")
	}
	if err := msg.Ack(false); err != nil {
		log.Warn().Err(err).Msg("failed to ack message")
	}
}
