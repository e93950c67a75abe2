package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/chat"
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) chat.Repository {
	return &chatRepository{db: db}
}

func (repo *chatRepository) CreateInteraction(ctx context.Context, in chat.Interaction) (chat.Interaction, error) {
	q := `INSERT INTO chat_interaction (user_id, session_id, query, response, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, in.UserID, in.SessionID, in.Query, in.Response, in.CreatedAt).Scan(&in.ID)
	if err != nil {
		return chat.Interaction{}, errors.Wrap(err, "creating interaction")
	}
	return in, nil
}

func (repo *chatRepository) FilterInteractions(ctx context.Context, userID, sessionID string, limit int) ([]chat.Interaction, error) {
	q := `SELECT id, user_id, session_id, query, response, created_at
		FROM chat_interaction
		WHERE user_id = $1 AND ($2 = '' OR session_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := repo.db.QueryxContext(ctx, q, userID, sessionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "filtering interactions")
	}
	defer func() { _ = rows.Close() }()

	interactions := make([]chat.Interaction, 0, limit)
	for rows.Next() {
		var in chat.Interaction
		if err = rows.Scan(&in.ID, &in.UserID, &in.SessionID, &in.Query, &in.Response, &in.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "filtering interactions")
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

func (repo *chatRepository) CreateFeedback(ctx context.Context, fb chat.Feedback) (chat.Feedback, error) {
	q := `INSERT INTO feedback (user_id, query, response, helpful, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, fb.UserID, fb.Query, fb.Response, fb.Helpful, fb.Comment, fb.CreatedAt).Scan(&fb.ID)
	if err != nil {
		return chat.Feedback{}, errors.Wrap(err, "creating feedback")
	}
	return fb, nil
}
