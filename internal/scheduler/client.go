package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"crm_insights_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// healthRefreshUniqueFor collapses repeated admin triggers for the same
// organization into one queued task.
const healthRefreshUniqueFor = 5 * time.Minute

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueHealthRefresh queues a client health refresh for one organization
// and returns the task id. A refresh already pending for the organization is
// reported as success with its id.
func (c *Client) EnqueueHealthRefresh(ctx context.Context, organizationID uuid.UUID) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewRefreshClientHealthTask(RefreshClientHealthPayload{OrganizationID: organizationID.String()})
	if err != nil {
		return "", err
	}

	taskID := healthRefreshTaskID(organizationID)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
		asynq.Retention(healthRefreshUniqueFor),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return taskID, nil
	}
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func healthRefreshTaskID(organizationID uuid.UUID) string {
	return "health-refresh:" + organizationID.String()
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
