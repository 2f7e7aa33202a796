package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const TypeNotificationDeliver = "notification:deliver"

// Enqueuer is the part of *asynq.Client the queue sink needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSink hands events to the worker so email delivery gets retries
// outside the request path.
type QueueSink struct {
	Client   Enqueuer
	MaxRetry int
}

func (s *QueueSink) Name() string { return "queue" }

func NewTask(ev Event) (*asynq.Task, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return asynq.NewTask(TypeNotificationDeliver, b), nil
}

func (s *QueueSink) Deliver(ctx context.Context, ev Event) error {
	task, err := NewTask(ev)
	if err != nil {
		return err
	}
	retries := s.MaxRetry
	if retries <= 0 {
		retries = 5
	}
	info, err := s.Client.EnqueueContext(ctx, task, asynq.MaxRetry(retries), asynq.Timeout(time.Minute))
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	log.Debug().Str("task_id", info.ID).Str("event", string(ev.Type)).Msg("notification queued")
	return nil
}

// TaskHandler runs queued notifications through Sink (normally the EmailSink).
type TaskHandler struct {
	Sink Sink
}

func (h *TaskHandler) HandleNotificationTask(ctx context.Context, t *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Sink.Deliver(ctx, ev); err != nil {
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("queued notification failed, will retry")
		return err
	}
	return nil
}

// NewServeMux registers the notification handler.
func NewServeMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotificationDeliver, h.HandleNotificationTask)
	return mux
}

// NewServer configures the worker's asynq server.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("task", task.Type()).Msg("asynq task failed")
		}),
	})
}
