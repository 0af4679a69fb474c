package assistant

import (
	"context"
	"fmt"

	"betai/internal/models"
)

// Preferences returns what has been learned about the user so far.
func (s *Service) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return prefs, fmt.Errorf("load preferences: %w", err)
	}
	return prefs, nil
}

// LearnPreferences merges learned into the stored preferences. Nothing is written when learned adds nothing.
func (s *Service) LearnPreferences(ctx context.Context, userID string, learned models.Preferences) (models.Preferences, error) {
	if learned.Empty() {
		return s.Preferences(ctx, userID)
	}
	prefs, err := s.store.UpdatePreferences(ctx, userID, func(p *models.Preferences) bool {
		return p.Merge(learned)
	})
	if err != nil {
		return prefs, fmt.Errorf("update preferences: %w", err)
	}
	return prefs, nil
}
