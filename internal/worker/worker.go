package worker

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/config"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/events"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
)

// Worker consumes webhook deliveries mirrored onto a Kafka topic and applies
// them through the same normalize/dispatch pipeline as the HTTP receiver.
type Worker struct {
	config     *config.Config
	logger     *logger.Logger
	reader     *kafka.Reader
	dispatcher *events.Dispatcher
	done       chan struct{}
}

func New(cfg *config.Config, logger *logger.Logger, dispatcher *events.Dispatcher) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokerList(cfg.KafkaBrokers),
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:     cfg,
		logger:     logger,
		reader:     reader,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.logger.Info("Worker started, listening for product events...")

	for {
		select {
		case <-w.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))

		notification := events.Normalize(message.Value)
		outcome, err := w.dispatcher.Dispatch(context.Background(), notification)
		if err != nil {
			w.logger.Error("Failed to process event: %v", err)
			continue
		}

		w.logger.Debug("Event processed: action=%s product=%s", outcome.Action, outcome.ProductID)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.done)
	w.reader.Close()
}

func brokerList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
