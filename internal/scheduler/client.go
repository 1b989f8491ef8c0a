package scheduler

import (
	"context"
	"errors"
	"time"

	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/redisx"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	deliveryMaxRetry    = 8
	deliveryRetention   = 24 * time.Hour
	capacityNoticeDedup = time.Hour
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadDelivery schedules one buyer e-mail. The task ID is derived from
// the lead and buyer so a replayed event does not send twice.
func (c *Client) EnqueueLeadDelivery(ctx context.Context, leadID uuid.UUID, buyerID string, rank int) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadDeliveryTask(LeadDeliveryPayload{
		LeadID:  leadID.String(),
		BuyerID: buyerID,
		Rank:    rank,
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(deliveryTaskID(leadID, buyerID)),
		asynq.MaxRetry(deliveryMaxRetry),
		asynq.Retention(deliveryRetention),
	)
	return ignoreDuplicate(err)
}

// EnqueueCapacityNotice schedules the out-of-capacity e-mail for a buyer, at
// most once per hour.
func (c *Client) EnqueueCapacityNotice(ctx context.Context, buyerID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCapacityNoticeTask(CapacityNoticePayload{BuyerID: buyerID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.Unique(capacityNoticeDedup),
		asynq.MaxRetry(deliveryMaxRetry),
	)
	return ignoreDuplicate(err)
}

func deliveryTaskID(leadID uuid.UUID, buyerID string) string {
	return "lead-delivery:" + leadID.String() + ":" + buyerID
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redisx.Options(redisURL, tlsInsecure)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
