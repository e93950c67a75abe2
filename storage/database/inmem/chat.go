package inmemdb

import (
	"context"

	"github.com/darasahq/darasa/core/chat"
)

type chatRepository struct {
	db *chatTable
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) chat.Repository {
	return &chatRepository{db: db.chat}
}

func (repo *chatRepository) CreateInteraction(ctx context.Context, in chat.Interaction) (chat.Interaction, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pkCount++
	in.ID = repo.db.pkCount
	repo.db.interactions = append(repo.db.interactions, in)
	return in, nil
}

func (repo *chatRepository) FilterInteractions(ctx context.Context, userID, sessionID string, limit int) ([]chat.Interaction, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// newest first; interactions are stored in insertion order
	interactions := make([]chat.Interaction, 0, limit)
	for i := len(repo.db.interactions) - 1; i >= 0 && len(interactions) < limit; i-- {
		in := repo.db.interactions[i]
		if in.UserID != userID {
			continue
		}
		if sessionID != "" && in.SessionID != sessionID {
			continue
		}
		interactions = append(interactions, in)
	}
	return interactions, nil
}

func (repo *chatRepository) CreateFeedback(ctx context.Context, fb chat.Feedback) (chat.Feedback, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.fbPkCount++
	fb.ID = repo.db.fbPkCount
	repo.db.feedback = append(repo.db.feedback, fb)
	return fb, nil
}
