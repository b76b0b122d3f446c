package matching

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"collab-service/internal/apperrors"
	"collab-service/internal/config"
	"collab-service/internal/events"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
	"collab-service/internal/telemetry"
)

const (
	outcomePending   = "pending"
	outcomeMatched   = "matched"
	outcomeDuplicate = "duplicate"
	outcomeError     = "error"
)

// Service runs the mutual-match protocol: record interest, detect
// reciprocity, promote and bootstrap the pair's conversation.
type Service struct {
	tx        repositories.Transactor
	reads     repositories.Repos
	emitter   *events.Emitter
	bootstrap bootstrapper
	limit     int
	logger    *slog.Logger
}

func NewService(tx repositories.Transactor, reads repositories.Repos, emitter *events.Emitter, cfg config.MatchingConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tx:        tx,
		reads:     reads,
		emitter:   emitter,
		bootstrap: newBootstrapper(cfg),
		limit:     cfg.PotentialLimit,
		logger:    logger,
	}
}

// Like records userID's interest in targetID. The insert, the reciprocity
// check, the promotion and the bootstrap commit together or not at all.
func (s *Service) Like(ctx context.Context, userID, targetID string) (out models.LikeOutcome, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "matching.Like", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("target.id", targetID),
	))
	defer func() { endSpan(span, err) }()

	targetID, err = normalizeTarget(userID, targetID)
	if err != nil {
		return models.LikeOutcome{}, err
	}

	var boot bootstrapResult
	err = s.tx.InPairTx(ctx, userID, targetID, func(ctx context.Context, repos repositories.Repos) error {
		out, boot = models.LikeOutcome{}, bootstrapResult{}

		_, err := repos.Matches.FindEdge(ctx, userID, targetID)
		if err == nil {
			return apperrors.ErrDuplicateEdge
		}
		if !errors.Is(err, repositories.ErrEdgeNotFound) {
			return err
		}

		edge, err := repos.Matches.CreateEdge(ctx, userID, targetID)
		if err != nil {
			return err
		}
		out.Edge = edge

		matched, err := promoteIfMutual(ctx, repos.Matches, userID, targetID)
		if err != nil || !matched {
			return err
		}
		out.Matched = true
		out.Edge.Status = models.MatchStatusMatched

		boot, err = s.bootstrap.run(ctx, repos, userID, targetID)
		if err != nil {
			return err
		}
		out.ConversationID = boot.Conversation.ID
		out.ConversationReused = boot.Reused
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEdge):
			observability.IncLike(outcomeDuplicate)
		case apperrors.CodeOf(err) == apperrors.CodeDatastore:
			observability.IncLike(outcomeError)
			s.logger.ErrorContext(ctx, "like failed", "user_id", userID, "target_id", targetID, "error", err)
		}
		return models.LikeOutcome{}, err
	}

	s.emitter.Emit(ctx, events.CollaboratorLiked, events.Liked{Edge: out.Edge})
	if !out.Matched {
		observability.IncLike(outcomePending)
		return out, nil
	}

	observability.IncLike(outcomeMatched)
	observability.IncBootstrap(out.ConversationReused)
	span.SetAttributes(attribute.String("conversation.id", out.ConversationID))
	s.logger.InfoContext(ctx, "mutual match", "user_id", userID, "target_id", targetID,
		"conversation_id", out.ConversationID, "reused", out.ConversationReused)

	participants := []string{userID, targetID}
	s.emitter.Emit(ctx, events.CollaboratorMatched, events.Matched{
		UserIDs:        participants,
		ConversationID: out.ConversationID,
		Reused:         out.ConversationReused,
	})
	if boot.Welcome != nil {
		s.emitter.Emit(ctx, events.ConversationCreated, events.ConversationStarted{
			Conversation:   boot.Conversation,
			ParticipantIDs: participants,
		})
		s.emitter.Emit(ctx, events.MessageCreated, events.MessagePosted{Message: *boot.Welcome, RecipientIDs: participants})
	}
	return out, nil
}

// Unlike removes userID's outbound edge. Missing edges are not an error and
// the counterpart's edge and any conversation are left alone.
func (s *Service) Unlike(ctx context.Context, userID, targetID string) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "matching.Unlike")
	defer func() { endSpan(span, err) }()

	targetID, err = normalizeTarget(userID, targetID)
	if err != nil {
		return err
	}
	if err := s.reads.Matches.DeleteEdge(ctx, userID, targetID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, events.CollaboratorUnmatched, events.Unmatched{UserID: userID, MatchedUserID: targetID})
	return nil
}

func (s *Service) ListMatches(ctx context.Context, userID string) ([]models.MatchWithProfile, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "matching.ListMatches")
	matches, err := s.reads.Matches.ListMatched(ctx, userID)
	endSpan(span, err)
	return matches, err
}

// ListPotential suggests up to the configured number of profiles the caller
// has not liked yet.
func (s *Service) ListPotential(ctx context.Context, userID string) ([]models.ProfileSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "matching.ListPotential")
	profiles, err := s.reads.Matches.ListPotential(ctx, userID, s.limit)
	endSpan(span, err)
	return profiles, err
}

func normalizeTarget(userID, targetID string) (string, error) {
	if strings.TrimSpace(targetID) == "" {
		return "", apperrors.Validation("matchedUserId is required")
	}
	id, err := uuid.Parse(targetID)
	if err != nil {
		return "", apperrors.Validation("matchedUserId must be a uuid")
	}
	if strings.EqualFold(id.String(), userID) {
		return "", apperrors.ErrSelfMatch
	}
	return id.String(), nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.PublicMessage(err))
	}
	span.End()
}
