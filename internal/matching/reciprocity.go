package matching

import (
	"context"
	"errors"
	"fmt"

	"collab-service/internal/apperrors"
	"collab-service/internal/repositories"
)

// promoteIfMutual checks for the inverse edge targetID -> userID and, when it
// exists in any status, flips both directed edges to matched in one statement.
// Callers hold the pair lock, so the inverse edge cannot appear or vanish
// between the two queries.
func promoteIfMutual(ctx context.Context, matches repositories.MatchRepository, userID, targetID string) (bool, error) {
	_, err := matches.FindEdge(ctx, targetID, userID)
	if errors.Is(err, repositories.ErrEdgeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	promoted, err := matches.PromotePair(ctx, userID, targetID)
	if err != nil {
		return false, err
	}
	if promoted != 2 {
		return false, apperrors.Datastore("datastore error", fmt.Errorf("promotion touched %d edges, want 2", promoted), true)
	}
	return true, nil
}
