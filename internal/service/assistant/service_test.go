package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"betai/internal/models"
	"betai/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2026, 2, 6, 18, 0, 0, 0, time.UTC) }
	return svc
}

func TestSignupAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "  Fan@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "fan@example.com" {
		t.Fatalf("expected lower-cased email, got %q", user.Email)
	}
	if _, err := uuid.Parse(user.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", user.ID)
	}
	if user.PasswordHash == "secret1" {
		t.Fatalf("password stored in plaintext")
	}

	if _, err := svc.Signup(ctx, "fan@example.com", "another1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := svc.Login(ctx, "FAN@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned %q, want %q", got.ID, user.ID)
	}
	if _, err := svc.Login(ctx, "fan@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService(t)
	cases := []struct {
		email, password string
	}{
		{"", "secret1"},
		{"fan@example.com", ""},
		{"not-an-email", "secret1"},
		{"fan@example.com", "12345"},
	}
	for _, c := range cases {
		if _, err := svc.Signup(context.Background(), c.email, c.password); err == nil {
			t.Fatalf("expected error for %q/%q", c.email, c.password)
		}
	}
}

func TestSaveChatDefaultsAndRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	saved, err := svc.SaveChat(ctx, userID, "Basketball", models.Chat{
		Messages: []models.ChatMessage{{Sender: models.SenderUser, Text: "Show matchups"}},
	})
	if err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if saved.ID == "" || saved.Title != models.DefaultChatTitle {
		t.Fatalf("expected generated id and default title, got %+v", saved)
	}
	if saved.CreatedAt != "2026-02-06T18:00:00Z" {
		t.Fatalf("unexpected createdAt %q", saved.CreatedAt)
	}

	svc.now = func() time.Time { return time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC) }
	saved.Title = "NBA picks"
	saved.CreatedAt = ""
	saved.Messages = append(saved.Messages, models.ChatMessage{Sender: models.SenderAssistant, Text: "Here you go"})
	again, err := svc.SaveChat(ctx, userID, "basketball", saved)
	if err != nil {
		t.Fatalf("update chat: %v", err)
	}
	if again.CreatedAt != "2026-02-06T18:00:00Z" {
		t.Fatalf("createdAt changed on update: %q", again.CreatedAt)
	}

	chats, err := svc.ListChats(ctx, userID, "basketball")
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	list := chats["basketball"]
	if len(list) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(list))
	}
	if list[0].Title != "NBA picks" || len(list[0].Messages) != 2 {
		t.Fatalf("unexpected chat %+v", list[0])
	}

	if _, err := svc.SaveChat(ctx, userID, "", models.Chat{Title: "misc"}); err != nil {
		t.Fatalf("save chat without sport: %v", err)
	}
	all, err := svc.ListChats(ctx, userID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all[DefaultChatSport]) != 1 {
		t.Fatalf("expected chat in %q bucket, got %+v", DefaultChatSport, all)
	}
}

func TestSaveChatRejectsUnknownSender(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.SaveChat(context.Background(), uuid.NewString(), "nfl", models.Chat{
		Messages: []models.ChatMessage{{Sender: "robot", Text: "beep"}},
	})
	if err == nil {
		t.Fatalf("expected invalid sender error")
	}
}

func TestDeleteChat(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	saved, err := svc.SaveChat(ctx, userID, "nfl", models.Chat{Title: "Chiefs"})
	if err != nil {
		t.Fatalf("save chat: %v", err)
	}
	if err := svc.DeleteChat(ctx, userID, "nfl", saved.ID); err != nil {
		t.Fatalf("delete chat: %v", err)
	}
	if err := svc.DeleteChat(ctx, userID, "nfl", saved.ID); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestLearnPreferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.NewString()

	prefs, err := svc.LearnPreferences(ctx, userID, models.Preferences{})
	if err != nil {
		t.Fatalf("learn empty: %v", err)
	}
	if !prefs.Empty() {
		t.Fatalf("expected empty preferences, got %+v", prefs)
	}

	if _, err := svc.LearnPreferences(ctx, userID, models.Preferences{FavoriteTeams: []string{"Boston Celtics"}}); err != nil {
		t.Fatalf("learn teams: %v", err)
	}
	prefs, err = svc.LearnPreferences(ctx, userID, models.Preferences{
		FavoriteTeams:     []string{"boston celtics"},
		PreferredBetTypes: []string{"spread"},
	})
	if err != nil {
		t.Fatalf("learn bet types: %v", err)
	}
	if len(prefs.FavoriteTeams) != 1 || len(prefs.PreferredBetTypes) != 1 {
		t.Fatalf("unexpected preferences %+v", prefs)
	}

	stored, err := svc.Preferences(ctx, userID)
	if err != nil {
		t.Fatalf("preferences: %v", err)
	}
	if stored.PreferredBetTypes[0] != "spread" {
		t.Fatalf("preferences not persisted: %+v", stored)
	}
}
