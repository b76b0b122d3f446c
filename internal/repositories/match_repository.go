package repositories

import (
	"context"
	"database/sql"
	"errors"

	"collab-service/internal/apperrors"
	"collab-service/internal/models"
)

var ErrEdgeNotFound = errors.New("match edge not found")

// MatchRepository is the store of directed interest edges.
type MatchRepository interface {
	CreateEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error)
	FindEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error)
	DeleteEdge(ctx context.Context, userID, targetID string) error
	PromotePair(ctx context.Context, userID, targetID string) (int64, error)
	ListMatched(ctx context.Context, userID string) ([]models.MatchWithProfile, error)
	ListPotential(ctx context.Context, userID string, limit int) ([]models.ProfileSummary, error)
}

// MatchRepo is a sqlx implementation of MatchRepository.
type MatchRepo struct {
	db DBTX
}

// NewMatchRepo constructs a MatchRepo.
func NewMatchRepo(db DBTX) *MatchRepo {
	return &MatchRepo{db: db}
}

const edgeColumns = `id, user_id, matched_user_id, status, created_at`

// CreateEdge inserts a pending edge userID -> targetID.
func (r *MatchRepo) CreateEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error) {
	var edge models.MatchEdge
	err := r.db.QueryRowxContext(ctx, `INSERT INTO collaborator_matches (user_id, matched_user_id, status) VALUES ($1, $2, $3)
        RETURNING `+edgeColumns, userID, targetID, models.MatchStatusPending).StructScan(&edge)
	switch {
	case err == nil:
		return edge, nil
	case isUniqueViolation(err):
		return models.MatchEdge{}, apperrors.ErrDuplicateEdge
	case isCheckViolation(err):
		return models.MatchEdge{}, apperrors.ErrSelfMatch
	default:
		return models.MatchEdge{}, dbError("matchRepo.CreateEdge.Insert", err)
	}
}

// FindEdge returns the edge for the ordered pair.
func (r *MatchRepo) FindEdge(ctx context.Context, userID, targetID string) (models.MatchEdge, error) {
	var edge models.MatchEdge
	err := r.db.GetContext(ctx, &edge, `SELECT `+edgeColumns+` FROM collaborator_matches WHERE user_id=$1 AND matched_user_id=$2`, userID, targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MatchEdge{}, ErrEdgeNotFound
	}
	if err != nil {
		return models.MatchEdge{}, dbError("matchRepo.FindEdge.Get", err)
	}
	return edge, nil
}

// DeleteEdge removes the ordered edge if present. The inverse edge and any
// conversation are left untouched.
func (r *MatchRepo) DeleteEdge(ctx context.Context, userID, targetID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM collaborator_matches WHERE user_id=$1 AND matched_user_id=$2`, userID, targetID); err != nil {
		return dbError("matchRepo.DeleteEdge.Exec", err)
	}
	return nil
}

// PromotePair marks both directed edges between the two users matched in one statement.
func (r *MatchRepo) PromotePair(ctx context.Context, userID, targetID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE collaborator_matches SET status=$3
        WHERE (user_id=$1 AND matched_user_id=$2) OR (user_id=$2 AND matched_user_id=$1)`,
		userID, targetID, models.MatchStatusMatched)
	if err != nil {
		return 0, dbError("matchRepo.PromotePair.Exec", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, dbError("matchRepo.PromotePair.RowsAffected", err)
	}
	return count, nil
}

// ListMatched returns the caller's matched edges with the counterpart's profile.
func (r *MatchRepo) ListMatched(ctx context.Context, userID string) ([]models.MatchWithProfile, error) {
	query := `SELECT m.id, m.user_id, m.matched_user_id, m.status, m.created_at,
            m.matched_user_id AS "matched_user.id",
            COALESCE(p.full_name, '') AS "matched_user.full_name",
            COALESCE(p.avatar_url, '') AS "matched_user.avatar_url",
            COALESCE(p.bio, '') AS "matched_user.bio",
            COALESCE(p.school, '') AS "matched_user.school",
            COALESCE(p.interests, '{}') AS "matched_user.interests",
            COALESCE(p.skills, '{}') AS "matched_user.skills"
        FROM collaborator_matches m
        LEFT JOIN profiles p ON p.id = m.matched_user_id
        WHERE m.user_id=$1 AND m.status=$2
        ORDER BY m.created_at DESC`
	matches := []models.MatchWithProfile{}
	if err := r.db.SelectContext(ctx, &matches, query, userID, models.MatchStatusMatched); err != nil {
		return nil, dbError("matchRepo.ListMatched.Select", err)
	}
	return matches, nil
}

// ListPotential suggests profiles the caller has not expressed interest in yet,
// preferring shared interests when the caller has declared any.
func (r *MatchRepo) ListPotential(ctx context.Context, userID string, limit int) ([]models.ProfileSummary, error) {
	query := `WITH me AS (
            SELECT COALESCE(interests, '{}') AS interests FROM profiles WHERE id=$1
        )
        SELECT p.id, COALESCE(p.full_name, '') AS full_name, COALESCE(p.avatar_url, '') AS avatar_url,
            COALESCE(p.bio, '') AS bio, COALESCE(p.school, '') AS school,
            COALESCE(p.interests, '{}') AS interests, COALESCE(p.skills, '{}') AS skills
        FROM profiles p
        WHERE p.id <> $1
        AND NOT EXISTS (SELECT 1 FROM collaborator_matches m WHERE m.user_id=$1 AND m.matched_user_id=p.id)
        AND (
            NOT EXISTS (SELECT 1 FROM me WHERE cardinality(me.interests) > 0)
            OR p.interests && (SELECT interests FROM me)
        )
        ORDER BY p.created_at DESC
        LIMIT $2`
	profiles := []models.ProfileSummary{}
	if err := r.db.SelectContext(ctx, &profiles, query, userID, limit); err != nil {
		return nil, dbError("matchRepo.ListPotential.Select", err)
	}
	return profiles, nil
}
