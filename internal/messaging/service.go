package messaging

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
	"collab-service/internal/events"
	"collab-service/internal/models"
	"collab-service/internal/observability"
	"collab-service/internal/repositories"
	"collab-service/internal/telemetry"
)

// Service is the conversation read/write surface.
type Service struct {
	tx      repositories.Transactor
	reads   repositories.Repos
	emitter *events.Emitter
	logger  *slog.Logger
}

func NewService(tx repositories.Transactor, reads repositories.Repos, emitter *events.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tx: tx, reads: reads, emitter: emitter, logger: logger}
}

// ListConversations returns the user's inbox, most recently active first,
// with the last message, the other participants and the unread tally.
func (s *Service) ListConversations(ctx context.Context, userID string) (summaries []models.ConversationSummary, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "messaging.ListConversations")
	defer func() { endSpan(span, err) }()

	convs, err := s.reads.Conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries = make([]models.ConversationSummary, 0, len(convs))
	if len(convs) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(convs))
	lastIDs := make([]string, 0, len(convs))
	for _, conv := range convs {
		ids = append(ids, conv.ID)
		if conv.LastMessageID != nil {
			lastIDs = append(lastIDs, *conv.LastMessageID)
		}
	}

	lastMessages, err := s.reads.Messages.GetMessagesByIDs(ctx, lastIDs)
	if err != nil {
		return nil, err
	}
	profiles, err := s.reads.Conversations.ListParticipantProfiles(ctx, ids, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.reads.Messages.UnreadCounts(ctx, ids, userID)
	if err != nil {
		return nil, err
	}

	messageByID := make(map[string]models.Message, len(lastMessages))
	for _, msg := range lastMessages {
		messageByID[msg.ID] = msg
	}
	profilesByConv := make(map[string][]models.ProfileSummary, len(convs))
	for _, p := range profiles {
		profilesByConv[p.ConversationID] = append(profilesByConv[p.ConversationID], p.ProfileSummary)
	}
	unreadByConv := make(map[string]int, len(unread))
	for _, u := range unread {
		unreadByConv[u.ConversationID] = u.Count
	}

	for _, conv := range convs {
		summary := models.ConversationSummary{
			Conversation: conv,
			Participants: profilesByConv[conv.ID],
			Unread:       unreadByConv[conv.ID],
		}
		if summary.Participants == nil {
			summary.Participants = []models.ProfileSummary{}
		}
		if conv.LastMessageID != nil {
			if msg, ok := messageByID[*conv.LastMessageID]; ok {
				summary.LastMessage = &msg
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// OpenConversation returns the thread oldest first and marks what others sent
// as read. The returned messages carry the read flags as they were on open.
func (s *Service) OpenConversation(ctx context.Context, conversationID, readerID string) (msgs []models.MessageWithSender, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "messaging.OpenConversation", trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer func() { endSpan(span, err) }()

	if conversationID, err = parseID("conversationId", conversationID); err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context, repos repositories.Repos) error {
		if err := requireParticipant(ctx, repos, conversationID, readerID); err != nil {
			return err
		}
		list, err := repos.Messages.ListMessages(ctx, conversationID)
		if err != nil {
			return err
		}
		if _, err := repos.Messages.MarkRead(ctx, conversationID, readerID); err != nil {
			return err
		}
		msgs = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// PostMessage appends a message and moves the conversation's last message pointer.
func (s *Service) PostMessage(ctx context.Context, conversationID, senderID, content string) (msg models.Message, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "messaging.PostMessage", trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer func() { endSpan(span, err) }()

	if conversationID, err = parseID("conversationId", conversationID); err != nil {
		return models.Message{}, err
	}
	content, err = requireContent(content)
	if err != nil {
		return models.Message{}, err
	}

	var recipients []string
	err = s.tx.InTx(ctx, func(ctx context.Context, repos repositories.Repos) error {
		if err := requireParticipant(ctx, repos, conversationID, senderID); err != nil {
			return err
		}
		created, err := repos.Messages.CreateMessage(ctx, conversationID, senderID, content)
		if err != nil {
			return err
		}
		if err := repos.Conversations.SetLastMessage(ctx, conversationID, created.ID); err != nil {
			return err
		}
		others, err := repos.Conversations.ListParticipantProfiles(ctx, []string{conversationID}, senderID)
		if err != nil {
			return err
		}
		recipients = profileIDs(others)
		msg = created
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}

	observability.IncMessagePosted()
	s.emitter.Emit(ctx, events.MessageCreated, events.MessagePosted{Message: msg, RecipientIDs: recipients})
	return msg, nil
}

// StartConversation opens a conversation with its first message. One other
// participant makes a direct conversation, reusing the pair's existing one;
// more than one makes a named group.
func (s *Service) StartConversation(ctx context.Context, req models.NewConversation) (started models.StartedConversation, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "messaging.StartConversation")
	defer func() { endSpan(span, err) }()

	others, err := otherParticipants(req.CreatorID, req.Participants)
	if err != nil {
		return models.StartedConversation{}, err
	}
	content, err := requireContent(req.Content)
	if err != nil {
		return models.StartedConversation{}, err
	}

	if len(others) == 1 {
		started, err = s.startDirect(ctx, req.CreatorID, others[0], content)
	} else {
		started, err = s.startGroup(ctx, req.CreatorID, others, req.Name, content)
	}
	if err != nil {
		return models.StartedConversation{}, err
	}

	participants := append([]string{req.CreatorID}, others...)
	observability.IncMessagePosted()
	if started.Created {
		s.emitter.Emit(ctx, events.ConversationCreated, events.ConversationStarted{Conversation: started.Conversation, ParticipantIDs: participants})
	}
	s.emitter.Emit(ctx, events.MessageCreated, events.MessagePosted{Message: started.Message, RecipientIDs: others})
	return started, nil
}

func (s *Service) startDirect(ctx context.Context, creatorID, otherID, content string) (started models.StartedConversation, err error) {
	pairKey := repositories.PairKey(creatorID, otherID)
	err = s.tx.InPairTx(ctx, creatorID, otherID, func(ctx context.Context, repos repositories.Repos) error {
		started = models.StartedConversation{}

		conv, err := repos.Conversations.FindByPairKey(ctx, pairKey)
		switch {
		case errors.Is(err, repositories.ErrConversationNotFound):
			conv, err = repos.Conversations.CreateConversation(ctx, models.ConversationDirect, nil, &pairKey)
			if errors.Is(err, repositories.ErrPairConversationTaken) {
				return apperrors.Datastore("datastore error", err, true)
			}
			if err != nil {
				return err
			}
			started.Created = true
		case err != nil:
			return err
		}

		if err := repos.Conversations.AddParticipants(ctx, conv.ID, []string{creatorID, otherID}); err != nil {
			return err
		}
		return s.firstMessage(ctx, repos, conv, creatorID, content, &started)
	})
	return started, err
}

func (s *Service) startGroup(ctx context.Context, creatorID string, others []string, name *string, content string) (started models.StartedConversation, err error) {
	if name == nil || strings.TrimSpace(*name) == "" {
		return started, apperrors.Validation("name is required for group conversations")
	}
	trimmed := strings.TrimSpace(*name)

	err = s.tx.InTx(ctx, func(ctx context.Context, repos repositories.Repos) error {
		started = models.StartedConversation{Created: true}

		conv, err := repos.Conversations.CreateConversation(ctx, models.ConversationGroup, &trimmed, nil)
		if err != nil {
			return err
		}
		if err := repos.Conversations.AddParticipants(ctx, conv.ID, append([]string{creatorID}, others...)); err != nil {
			return err
		}
		return s.firstMessage(ctx, repos, conv, creatorID, content, &started)
	})
	return started, err
}

func (s *Service) firstMessage(ctx context.Context, repos repositories.Repos, conv models.Conversation, senderID, content string, started *models.StartedConversation) error {
	msg, err := repos.Messages.CreateMessage(ctx, conv.ID, senderID, content)
	if err != nil {
		return err
	}
	if err := repos.Conversations.SetLastMessage(ctx, conv.ID, msg.ID); err != nil {
		return err
	}
	conv.LastMessageID = &msg.ID
	started.Conversation = conv
	started.Message = msg
	return nil
}

// MarkRead flips every unread message the reader did not author.
func (s *Service) MarkRead(ctx context.Context, conversationID, readerID string) (updated int64, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "messaging.MarkRead", trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer func() { endSpan(span, err) }()

	if conversationID, err = parseID("conversationId", conversationID); err != nil {
		return 0, err
	}
	err = s.tx.InTx(ctx, func(ctx context.Context, repos repositories.Repos) error {
		if err := requireParticipant(ctx, repos, conversationID, readerID); err != nil {
			return err
		}
		n, err := repos.Messages.MarkRead(ctx, conversationID, readerID)
		updated = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func requireParticipant(ctx context.Context, repos repositories.Repos, conversationID, userID string) error {
	ok, err := repos.Conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := repos.Conversations.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	return apperrors.ErrNotAParticipant
}

// otherParticipants validates and deduplicates the requested participants,
// dropping the creator, who always joins.
func otherParticipants(creatorID string, requested []string) ([]string, error) {
	seen := map[string]struct{}{strings.ToLower(creatorID): {}}
	others := make([]string, 0, len(requested))
	for _, raw := range requested {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperrors.Validation("participants must be user ids")
		}
		key := id.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		others = append(others, key)
	}
	if len(others) == 0 {
		return nil, apperrors.Validation("at least one other participant is required")
	}
	return others, nil
}

func requireContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", apperrors.Validation("content is required")
	}
	return content, nil
}

func parseID(field, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.Validation(field + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.Validation(field + " must be a uuid")
	}
	return id.String(), nil
}

func profileIDs(profiles []models.ConversationProfile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.PublicMessage(err))
	}
	span.End()
}
