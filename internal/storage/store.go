package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"betai/internal/config"
	"betai/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidUserID = errors.New("invalid user id")
)

// Store persists users, chats and preferences.
type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)

	// ListChats returns chats keyed by sport; an empty sport returns every bucket.
	ListChats(ctx context.Context, userID, sport string) (map[string][]models.Chat, error)
	// SaveChat inserts the chat or replaces the one with the same id in the bucket.
	SaveChat(ctx context.Context, userID, sport string, chat models.Chat) error
	DeleteChat(ctx context.Context, userID, sport, chatID string) error

	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	// UpdatePreferences applies fn under the store's write lock and persists the result when fn reports a change.
	UpdatePreferences(ctx context.Context, userID string, fn func(*models.Preferences) bool) (models.Preferences, error)

	Close() error
}

// Open builds the store selected by cfg.Storage.Driver.
func Open(cfg *config.Config) (Store, error) {
	driver := cfg.Storage.Driver
	if driver == "" || driver == "json" {
		return NewJSONStore(cfg.Storage.DataDir)
	}
	db, err := OpenDB(driver, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, driver); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, driver), nil
}

// validUserID guards file paths and keys built from user ids.
func validUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
	}
	return nil
}
