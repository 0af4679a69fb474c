package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"betai/internal/models"
)

// JSONStore keeps everything in flat files under one directory:
// users.json, chats/<user>.json and preferences/<user>.json.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore creates the directory layout if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		return nil, errors.New("data dir is required")
	}
	for _, sub := range []string{"", "chats", "preferences"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) usersPath() string { return filepath.Join(s.dir, "users.json") }

func (s *JSONStore) chatsPath(userID string) string {
	return filepath.Join(s.dir, "chats", userID+".json")
}

func (s *JSONStore) prefsPath(userID string) string {
	return filepath.Join(s.dir, "preferences", userID+".json")
}

func (s *JSONStore) CreateUser(_ context.Context, user models.User) error {
	if err := validUserID(user.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := readJSON(s.usersPath(), &users); err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	users = append(users, user)
	return writeJSON(s.usersPath(), users)
}

func (s *JSONStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *JSONStore) UserByID(_ context.Context, id string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.ID == id })
}

func (s *JSONStore) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	if err := readJSON(s.usersPath(), &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) ListChats(_ context.Context, userID, sport string) (map[string][]models.Chat, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.loadChats(userID)
	if err != nil {
		return nil, err
	}
	if sport == "" {
		return chats, nil
	}
	list := chats[sport]
	if list == nil {
		list = []models.Chat{}
	}
	return map[string][]models.Chat{sport: list}, nil
}

func (s *JSONStore) SaveChat(_ context.Context, userID, sport string, chat models.Chat) error {
	if err := validUserID(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.loadChats(userID)
	if err != nil {
		return err
	}
	chats[sport] = upsertChat(chats[sport], chat)
	return writeJSON(s.chatsPath(userID), chats)
}

func (s *JSONStore) DeleteChat(_ context.Context, userID, sport, chatID string) error {
	if err := validUserID(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, err := s.loadChats(userID)
	if err != nil {
		return err
	}
	list := chats[sport]
	for i, c := range list {
		if c.ID == chatID {
			chats[sport] = append(list[:i:i], list[i+1:]...)
			return writeJSON(s.chatsPath(userID), chats)
		}
	}
	return ErrNotFound
}

func (s *JSONStore) loadChats(userID string) (map[string][]models.Chat, error) {
	chats := make(map[string][]models.Chat)
	if err := readJSON(s.chatsPath(userID), &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *JSONStore) Preferences(_ context.Context, userID string) (models.Preferences, error) {
	if err := validUserID(userID); err != nil {
		return models.Preferences{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefs models.Preferences
	err := readJSON(s.prefsPath(userID), &prefs)
	return prefs, err
}

func (s *JSONStore) UpdatePreferences(_ context.Context, userID string, fn func(*models.Preferences) bool) (models.Preferences, error) {
	if err := validUserID(userID); err != nil {
		return models.Preferences{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var prefs models.Preferences
	if err := readJSON(s.prefsPath(userID), &prefs); err != nil {
		return prefs, err
	}
	if !fn(&prefs) {
		return prefs, nil
	}
	prefs.UpdatedAt = time.Now().UTC()
	return prefs, writeJSON(s.prefsPath(userID), prefs)
}

func (s *JSONStore) Close() error { return nil }

func upsertChat(list []models.Chat, chat models.Chat) []models.Chat {
	for i := range list {
		if list[i].ID == chat.ID {
			if chat.CreatedAt == "" {
				chat.CreatedAt = list[i].CreatedAt
			}
			list[i] = chat
			return list
		}
	}
	return append(list, chat)
}

// readJSON leaves dst untouched when the file does not exist yet.
func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically via a temp file in the same directory.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
