package jobs

import (
	"crypto/tls"
	"fmt"
	"time"

	"chatdesk_backend/platform/config"
	"chatdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const reminderLeadTime = 24 * time.Hour

// RedisConnOpt builds the asynq connection options from the redis URL.
func RedisConnOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("invalid redis url: %w", err)
	}

	conn := asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLSConfig != nil {
		conn.TLSConfig = opts.TLSConfig
		if cfg.GetRedisTLSInsecure() {
			conn.TLSConfig = &tls.Config{InsecureSkipVerify: true}
		}
	}
	return conn, nil
}

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
	queue  string
	log    *logger.Logger
}

func NewClient(cfg config.RedisConfig, log *logger.Logger) (*Client, error) {
	conn, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(conn),
		queue:  cfg.GetAsynqQueueName(),
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ScheduleAppointmentReminder queues a reminder 24 hours before the
// appointment. Near-term appointments get no reminder.
func (c *Client) ScheduleAppointmentReminder(appointmentID, organizationID uuid.UUID, scheduledAt time.Time) error {
	remindAt := scheduledAt.Add(-reminderLeadTime)
	if !remindAt.After(time.Now()) {
		return nil
	}

	task, err := NewAppointmentReminderTask(appointmentID, organizationID)
	if err != nil {
		return err
	}

	info, err := c.client.Enqueue(task,
		asynq.Queue(c.queue),
		asynq.ProcessAt(remindAt),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue reminder: %w", err)
	}

	c.log.Info("appointment reminder scheduled",
		"appointment_id", appointmentID, "task_id", info.ID, "process_at", remindAt)
	return nil
}
