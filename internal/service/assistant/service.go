package assistant

import (
	"errors"
	"time"

	"betai/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = storage.ErrEmailTaken
	ErrChatNotFound       = errors.New("chat not found")
	ErrInvalidChat        = errors.New("invalid chat")
)

// Service handles users, saved chats and learned preferences on top of a Store.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService builds a new assistant service.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}
