package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in RefreshMessage.JobType.
const (
	JobWeatherRefresh = "weather_refresh"
	JobHealthCheck    = "health_check"
)

// Message errors. Messages failing with these are acknowledged, since
// redelivery cannot fix them.
var (
	ErrMalformedMessage = errors.New("malformed job message")
	ErrUnknownJobType   = errors.New("unknown job type")
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *JobProcessor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage is a worker job message.
type RefreshMessage struct {
	JobType string `json:"job_type"`

	// Districts limits a weather refresh to these catalog ids. Empty means all.
	Districts []string `json:"districts,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             NewJobProcessor(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.jobs.Process(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrUnknownJobType):
		logger.Warn().Err(err).Msg("dropping message")
		msg.Ack() // Ack to prevent redelivery
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().
			Dur("duration", time.Since(startTime)).
			Msg("job completed successfully")
		msg.Ack()
	}
}

// JobProcessor runs the jobs named by worker messages.
type JobProcessor struct {
	refreshJob *RefreshJob
	logger     zerolog.Logger
}

// NewJobProcessor creates a new JobProcessor.
func NewJobProcessor(refreshJob *RefreshJob, logger zerolog.Logger) *JobProcessor {
	return &JobProcessor{refreshJob: refreshJob, logger: logger}
}

// Process decodes a job message and runs it.
func (p *JobProcessor) Process(ctx context.Context, data []byte) error {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobWeatherRefresh:
		return p.weatherRefresh(ctx, msg.Districts)
	case JobHealthCheck:
		return p.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (p *JobProcessor) weatherRefresh(ctx context.Context, districts []string) error {
	targets := p.refreshJob.config.Select(districts)
	if len(targets) == 0 {
		return fmt.Errorf("%w: no known districts in %v", ErrMalformedMessage, districts)
	}

	result := p.refreshJob.RunTargets(ctx, targets)

	// Redeliver only when most districts failed
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalTargets)
	}
	return nil
}

func (p *JobProcessor) healthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")

	// One district is enough to verify provider connectivity.
	targets := p.refreshJob.config.Select(nil)
	if len(targets) == 0 {
		return errors.New("health check: no refresh targets")
	}

	result := p.refreshJob.RunTargets(ctx, targets[:1])
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}
	if result.Successful == 0 {
		return fmt.Errorf("health check skipped: %w", ctx.Err())
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}
