package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"travelbooking/internal/domain"
	"travelbooking/internal/metrics"
	"travelbooking/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handler executes one task. A returned error schedules a retry.
type Handler func(ctx context.Context, task *models.Task) error

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent task failure")

type Options struct {
	Retry        RetryPolicy
	QueueKey     string
	PollInterval time.Duration
	BatchSize    int
	// Alerts, when set, is told about every task that fails permanently.
	Alerts domain.Notifier
}

// TaskWorker persists background tasks to the task_queue table and runs them.
// Fresh tasks are handed over through redis (or an in-process channel when
// redis is unavailable); retries and anything missed are picked up by polling.
type TaskWorker struct {
	store         domain.TaskStore
	redis         *redis.Client
	handlers      map[string]Handler
	retryPolicy   RetryPolicy
	queue         chan models.Task
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	alerts        domain.Notifier
	running       atomic.Bool
	logger        *zerolog.Logger
}

func NewTaskWorker(store domain.TaskStore, redisClient *redis.Client, opts Options, logger *zerolog.Logger) *TaskWorker {
	retry := opts.Retry
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if opts.QueueKey == "" {
		opts.QueueKey = "travelbooking:tasks"
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &TaskWorker{
		store:         store,
		redis:         redisClient,
		handlers:      make(map[string]Handler),
		retryPolicy:   retry,
		queue:         make(chan models.Task, models.WorkerQueueSize),
		redisQueueKey: opts.QueueKey,
		deadLetterKey: opts.QueueKey + ":deadletter",
		pollInterval:  opts.PollInterval,
		batchSize:     opts.BatchSize,
		alerts:        opts.Alerts,
		logger:        logger,
	}
}

// Handle registers the handler for a task type. Call before Start.
func (w *TaskWorker) Handle(taskType string, h Handler) {
	w.handlers[taskType] = h
}

// Enqueue persists a task and schedules it. payload is stored as JSON.
func (w *TaskWorker) Enqueue(ctx context.Context, taskType, bookingID string, payload interface{}) (*models.Task, error) {
	if taskType == "" {
		return nil, errors.New("task type is required")
	}
	if bookingID == "" {
		return nil, errors.New("booking id is required")
	}

	raw := []byte("{}")
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	task := models.Task{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   string(raw),
		Status:    models.TaskStatusPending,
	}
	if err := w.store.CreateTask(ctx, &task); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return &task, nil
		}
	}

	// a producer-only process leaves the task to whichever worker polls first
	if !w.running.Load() {
		return &task, nil
	}
	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return &task, nil
}

// Start runs the worker loop until ctx is done.
func (w *TaskWorker) Start(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)
	w.logger.Info().Msg("task worker started")
	defer w.logger.Info().Msg("task worker stopped")

	if n, err := w.store.RequeueInterrupted(ctx); err != nil {
		w.logger.Error().Err(err).Msg("requeue interrupted tasks")
	} else if n > 0 {
		w.logger.Info().Int64("count", n).Msg("requeued interrupted tasks")
	}

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}
		if w.RunDue(ctx) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

// RunDue processes one batch of due tasks from storage and returns how many it saw.
func (w *TaskWorker) RunDue(ctx context.Context) int {
	tasks, err := w.store.GetPendingTasks(ctx, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("fetch pending tasks")
		return 0
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
}

func (w *TaskWorker) tryLocalQueue() (models.Task, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.Task{}, false
	}
}

func (w *TaskWorker) tryRedis(ctx context.Context) (models.Task, bool) {
	if w.redis == nil {
		return models.Task{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, redis.Nil) {
			return models.Task{}, false
		}
		w.logger.Warn().Err(err).Msg("redis BRPOP error")
		return models.Task{}, false
	}
	if len(res) != 2 {
		return models.Task{}, false
	}
	var task models.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.Task{}, false
	}
	return task, true
}

func (w *TaskWorker) processTask(ctx context.Context, task *models.Task) {
	claimed, err := w.store.ClaimTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("claim task")
		return
	}
	if !claimed {
		return
	}

	log := w.logger.With().Int64("task_id", task.ID).Str("task_type", task.TaskType).Str("booking_id", task.BookingID).Logger()

	handler, ok := w.handlers[task.TaskType]
	if !ok {
		w.failTask(ctx, task, fmt.Errorf("%w: unknown task type %s", ErrPermanent, task.TaskType))
		return
	}

	err = handler(ctx, task)
	metrics.IncTask(task.TaskType, err)
	if err != nil {
		if errors.Is(err, ErrPermanent) {
			w.failTask(ctx, task, err)
			return
		}
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("mark completed")
		return
	}
	log.Debug().Msg("task completed")
}

func (w *TaskWorker) retryOrFail(ctx context.Context, task *models.Task, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
		return
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Str("task_type", task.TaskType).
		Int("attempt", attempt).Time("next_retry_at", nextTime).Msg("task failed, will retry")
}

func (w *TaskWorker) failTask(ctx context.Context, task *models.Task, cause error) {
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("task_type", task.TaskType).
		Str("booking_id", task.BookingID).Msg("task failed permanently")
	if err := w.store.UpdateTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.pushDeadLetter(ctx, task)

	if w.alerts != nil {
		text := fmt.Sprintf("Task %d (%s) for booking %s failed: %v", task.ID, task.TaskType, task.BookingID, cause)
		if err := w.alerts.NotifyAdmins(ctx, text); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("alert admins")
		}
	}
}

func (w *TaskWorker) pushRedis(ctx context.Context, task models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *TaskWorker) pushDeadLetter(ctx context.Context, task *models.Task) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
