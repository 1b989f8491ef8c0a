package scheduler

import (
	"context"
	"errors"
	"fmt"

	"lead_broker_backend/internal/notification"
	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// BuyerNotifier performs the deliveries behind queued tasks.
type BuyerNotifier interface {
	DeliverLead(ctx context.Context, leadID uuid.UUID, buyerID string, rank int) error
	NotifyCapacityExhausted(ctx context.Context, buyerID string) error
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	notifier BuyerNotifier
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, notifier BuyerNotifier, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:   server,
		notifier: notifier,
		log:      log,
	}
	w.mux = w.newMux()
	return w, nil
}

func (w *Worker) newMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLeadDelivery, w.handleLeadDelivery)
	mux.HandleFunc(TaskCapacityNotice, w.handleCapacityNotice)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadDelivery(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadDeliveryPayload(task)
	if err != nil {
		return fmt.Errorf("decode lead delivery: %v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("lead delivery lead id: %v: %w", err, asynq.SkipRetry)
	}

	ctx = context.WithValue(ctx, logger.LeadIDKey, payload.LeadID)
	return skipIfUndeliverable(w.notifier.DeliverLead(ctx, leadID, payload.BuyerID, payload.Rank))
}

func (w *Worker) handleCapacityNotice(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCapacityNoticePayload(task)
	if err != nil {
		return fmt.Errorf("decode capacity notice: %v: %w", err, asynq.SkipRetry)
	}
	return skipIfUndeliverable(w.notifier.NotifyCapacityExhausted(ctx, payload.BuyerID))
}

func skipIfUndeliverable(err error) error {
	if errors.Is(err, notification.ErrUndeliverable) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
