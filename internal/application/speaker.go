package application

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/conference-central/internal/key"
)

// FeaturedSpeakerEvaluator promotes a speaker with more than one session in a
// conference to the single global featured speaker slot.
type FeaturedSpeakerEvaluator struct {
	sessions SessionRepository
	cache    Cache
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewFeaturedSpeakerEvaluator constructs an evaluator.
func NewFeaturedSpeakerEvaluator(sessions SessionRepository, cache Cache, logger *slog.Logger) *FeaturedSpeakerEvaluator {
	return &FeaturedSpeakerEvaluator{
		sessions: sessions,
		cache:    cache,
		logger:   defaultLogger(logger),
		tracer:   otel.Tracer(tracerName),
	}
}

// FeaturedSpeakerMessage formats the cached announcement for speaker.
func FeaturedSpeakerMessage(speaker string) string {
	return fmt.Sprintf("Featured Speaker: %s", speaker)
}

// Evaluate counts the speaker's sessions under the conference. With two or
// more it overwrites the featured speaker slot and returns the message. With
// fewer the slot is left as it is, whatever it holds. Evaluate recomputes
// from scratch, so repeated runs are harmless.
func (e *FeaturedSpeakerEvaluator) Evaluate(ctx context.Context, speaker string, conferenceKey key.Key) (message string, featured bool, err error) {
	ctx, span := e.tracer.Start(ctx, "FeaturedSpeakerEvaluator.Evaluate", trace.WithAttributes(
		attribute.String("speaker", speaker),
		attribute.String("conference.key", conferenceKey.String()),
	))
	logger := serviceLogger(ctx, e.logger, "FeaturedSpeakerEvaluator", "Evaluate",
		"speaker", speaker,
		"conference_key", conferenceKey.String(),
	)
	defer func() {
		defer span.End()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorKind(err))
			logger.ErrorContext(ctx, "failed to evaluate featured speaker", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(attribute.Bool("speaker.featured", featured))
		logger.InfoContext(ctx, "featured speaker evaluated", "featured", featured)
	}()

	if speaker == "" {
		return "", false, nil
	}

	count, err := e.sessions.CountSessions(ctx, SessionQuery{Conference: &conferenceKey, Speaker: speaker})
	if err != nil {
		return "", false, mapRepoError(err)
	}
	span.SetAttributes(attribute.Int("speaker.sessions", count))
	if count <= 1 {
		return "", false, nil
	}

	message = FeaturedSpeakerMessage(speaker)
	if err := e.cache.Set(ctx, CacheKeyFeaturedSpeaker, message); err != nil {
		return "", false, fmt.Errorf("cache featured speaker: %w", err)
	}
	return message, true, nil
}
