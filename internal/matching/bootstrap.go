package matching

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"collab-service/internal/apperrors"
	"collab-service/internal/config"
	"collab-service/internal/models"
	"collab-service/internal/repositories"
)

// SystemSenderID authors welcome messages unless configured otherwise.
var SystemSenderID = uuid.Nil.String()

type bootstrapResult struct {
	Conversation models.Conversation
	Welcome      *models.Message
	Reused       bool
}

// bootstrapper stands up the direct conversation of a freshly matched pair.
// It is keyed by the pair, so running it twice for the same pair yields the
// same conversation and a single welcome message.
type bootstrapper struct {
	welcome string
	sender  string
}

func newBootstrapper(cfg config.MatchingConfig) bootstrapper {
	return bootstrapper{welcome: cfg.WelcomeMessage, sender: cfg.WelcomeSender}
}

func (b bootstrapper) senderFor(initiatorID string) string {
	if b.sender == config.WelcomeSenderInitiator {
		return initiatorID
	}
	return SystemSenderID
}

// run must be called inside the pair transaction of (initiatorID, counterpartID).
func (b bootstrapper) run(ctx context.Context, repos repositories.Repos, initiatorID, counterpartID string) (bootstrapResult, error) {
	pairKey := repositories.PairKey(initiatorID, counterpartID)
	participants := []string{initiatorID, counterpartID}

	existing, err := repos.Conversations.FindByPairKey(ctx, pairKey)
	switch {
	case err == nil:
		if err := repos.Conversations.AddParticipants(ctx, existing.ID, participants); err != nil {
			return bootstrapResult{}, err
		}
		return bootstrapResult{Conversation: existing, Reused: true}, nil
	case !errors.Is(err, repositories.ErrConversationNotFound):
		return bootstrapResult{}, err
	}

	conv, err := repos.Conversations.CreateConversation(ctx, models.ConversationDirect, nil, &pairKey)
	if errors.Is(err, repositories.ErrPairConversationTaken) {
		// another writer bypassed the pair lock; a retry will find its row
		return bootstrapResult{}, apperrors.Datastore("datastore error", err, true)
	}
	if err != nil {
		return bootstrapResult{}, err
	}

	if err := repos.Conversations.AddParticipants(ctx, conv.ID, participants); err != nil {
		return bootstrapResult{}, err
	}

	msg, err := repos.Messages.CreateMessage(ctx, conv.ID, b.senderFor(initiatorID), b.welcome)
	if err != nil {
		return bootstrapResult{}, err
	}
	if err := repos.Conversations.SetLastMessage(ctx, conv.ID, msg.ID); err != nil {
		return bootstrapResult{}, err
	}
	conv.LastMessageID = &msg.ID

	return bootstrapResult{Conversation: conv, Welcome: &msg}, nil
}
