package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"betai/internal/models"
	"betai/internal/odds"
	"betai/internal/storage"
)

// DefaultChatSport buckets chats posted without a sport.
const DefaultChatSport = "other"

// ListChats returns the user's chats grouped by sport; an empty sport returns every bucket.
func (s *Service) ListChats(ctx context.Context, userID, sport string) (map[string][]models.Chat, error) {
	if sport != "" {
		sport = odds.NormalizeSport(sport)
	}
	chats, err := s.store.ListChats(ctx, userID, sport)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

// SaveChat creates or replaces a chat, filling in id, title and timestamps when missing.
func (s *Service) SaveChat(ctx context.Context, userID, sport string, chat models.Chat) (models.Chat, error) {
	sport = odds.NormalizeSport(sport)
	if sport == "" {
		sport = DefaultChatSport
	}
	chat.ID = strings.TrimSpace(chat.ID)
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	chat.Title = strings.TrimSpace(chat.Title)
	if chat.Title == "" {
		chat.Title = models.DefaultChatTitle
	}
	if chat.Messages == nil {
		chat.Messages = []models.ChatMessage{}
	}
	for i, m := range chat.Messages {
		if m.Sender != models.SenderUser && m.Sender != models.SenderAssistant {
			return chat, fmt.Errorf("%w: message %d has invalid sender %q", ErrInvalidChat, i, m.Sender)
		}
	}
	chat.UpdatedAt = s.now().UTC()
	if chat.CreatedAt == "" {
		existing, err := s.store.ListChats(ctx, userID, sport)
		if err != nil {
			return chat, fmt.Errorf("load chats: %w", err)
		}
		chat.CreatedAt = chat.UpdatedAt.Format(time.RFC3339)
		for _, c := range existing[sport] {
			if c.ID == chat.ID {
				chat.CreatedAt = c.CreatedAt
				break
			}
		}
	}
	if err := s.store.SaveChat(ctx, userID, sport, chat); err != nil {
		return chat, fmt.Errorf("save chat: %w", err)
	}
	return chat, nil
}

// DeleteChat removes one chat from a sport bucket.
func (s *Service) DeleteChat(ctx context.Context, userID, sport, chatID string) error {
	sport = odds.NormalizeSport(sport)
	if sport == "" || strings.TrimSpace(chatID) == "" {
		return errors.New("sport and chat id are required")
	}
	if err := s.store.DeleteChat(ctx, userID, sport, chatID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}
