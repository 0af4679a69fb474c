package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"betai/internal/auth"
	"betai/internal/espn"
	"betai/internal/models"
	"betai/internal/odds"
	"betai/internal/service/advisor"
	"betai/internal/service/ai"
	"betai/internal/service/assistant"
	"betai/internal/storage"
	"betai/internal/worker"
)

const testSecret = "test-secret-0123456789"

type fakeOdds struct {
	configured bool
	events     map[string][]odds.Event
	err        error
	liveErr    error
}

func (f *fakeOdds) Configured() bool { return f.configured }

func (f *fakeOdds) FetchOdds(_ context.Context, sportKey string, _ ...string) ([]odds.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[sportKey], nil
}

func (f *fakeOdds) FetchLive(context.Context) ([]odds.LiveGroup, error) {
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	return nil, nil
}

func (f *fakeOdds) ListSports(context.Context) ([]odds.Sport, error) {
	return []odds.Sport{{Key: "basketball_nba", Title: "NBA", Active: true}}, nil
}

type fakeChecker struct {
	configured bool
	reply      ai.Reply
	err        error
}

func (f fakeChecker) Configured() bool { return f.configured }

func (f fakeChecker) Check(context.Context) (ai.Reply, error) { return f.reply, f.err }

type fakeScoreboard struct {
	games []espn.Game
	err   error
}

func (f fakeScoreboard) Scoreboard(context.Context, string) ([]espn.Game, error) {
	return f.games, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testServer struct {
	router *gin.Engine
	odds   *fakeOdds
	h      *Handler
}

func h2hEvent(home, away string, homePrice, awayPrice float64) odds.Event {
	return odds.Event{
		ID:       home,
		SportKey: "basketball_nba",
		HomeTeam: home,
		AwayTeam: away,
		Bookmakers: []odds.Bookmaker{
			{Key: "fanduel", Title: "FanDuel", Markets: []odds.Market{{Key: odds.MarketH2H, Outcomes: []odds.Outcome{
				{Name: home, Price: homePrice}, {Name: away, Price: awayPrice},
			}}}},
			{Key: "draftkings", Title: "DraftKings", Markets: []odds.Market{{Key: odds.MarketH2H, Outcomes: []odds.Outcome{
				{Name: home, Price: homePrice + 0.25}, {Name: away, Price: awayPrice - 0.05},
			}}}},
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	asst := assistant.NewService(store)
	authSvc := auth.NewService(testSecret, time.Hour, store)
	oddsSrc := &fakeOdds{
		configured: true,
		events: map[string][]odds.Event{
			"basketball_nba": {h2hEvent("Los Angeles Lakers", "Boston Celtics", 2.25, 1.65)},
		},
	}
	adv := advisor.New(advisor.Options{
		Odds:        oddsSrc,
		LLM:         ai.NewClient(nil, ai.Options{}),
		Preferences: asst,
	})
	dispatcher := worker.NewDispatcher(worker.Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8})
	t.Cleanup(dispatcher.Close)
	handler := NewHandler(Deps{
		Assistant: asst,
		Auth:      authSvc,
		Advisor:   worker.NewQueuedAdvisor(adv, dispatcher),
		Odds:      oddsSrc,
		LLM:       fakeChecker{},
		Scores:    fakeScoreboard{},
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, odds: oddsSrc, h: handler}
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func signup(t *testing.T, router *gin.Engine, email string) map[string]string {
	t.Helper()
	rec := doJSONRequest(t, router, http.MethodPost, "/auth/signup", gin.H{"email": email, "password": "secret1"}, nil)
	assertStatus(t, rec, http.StatusCreated)
	var resp authResponse
	decodeJSON(t, rec.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatalf("signup returned no token: %s", rec.Body.String())
	}
	if resp.User.PasswordHash != "" {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	headers := signup(t, srv.router, "Fan@Example.com")

	rec := doJSONRequest(t, srv.router, http.MethodPost, "/auth/signup", gin.H{"email": "fan@example.com", "password": "another1"}, nil)
	assertStatus(t, rec, http.StatusConflict)

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/auth/signup", gin.H{"email": "short@example.com", "password": "12345"}, nil)
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/auth/login", gin.H{"email": "fan@example.com", "password": "wrong-pass"}, nil)
	assertStatus(t, rec, http.StatusUnauthorized)

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/auth/login", gin.H{"email": "fan@example.com", "password": "secret1"}, nil)
	assertStatus(t, rec, http.StatusOK)
	var login authResponse
	decodeJSON(t, rec.Body.Bytes(), &login)

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/auth/me", nil, map[string]string{"Authorization": "Bearer " + login.Token})
	assertStatus(t, rec, http.StatusOK)
	var me struct {
		User models.User `json:"user"`
	}
	decodeJSON(t, rec.Body.Bytes(), &me)
	if me.User.Email != "fan@example.com" {
		t.Fatalf("unexpected user %+v", me.User)
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/auth/me", nil, headers)
	assertStatus(t, rec, http.StatusOK)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	other := auth.NewService("another-secret-0123456789", time.Hour, nil)
	forged, err := other.IssueToken("3f8a2b9e-6c1d-4e5f-9a0b-1c2d3e4f5a6b")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	for _, headers := range []map[string]string{
		nil,
		{"Authorization": "Bearer not-a-token"},
		{"Authorization": "Bearer " + forged},
	} {
		for _, route := range []struct{ method, path string }{
			{http.MethodGet, "/chats"},
			{http.MethodPost, "/chats"},
			{http.MethodDelete, "/chats/abc?sport=nfl"},
			{http.MethodGet, "/auth/me"},
			{http.MethodGet, "/preferences"},
		} {
			rec := doJSONRequest(t, srv.router, route.method, route.path, gin.H{}, headers)
			assertStatus(t, rec, http.StatusUnauthorized)
			var body map[string]string
			decodeJSON(t, rec.Body.Bytes(), &body)
			if body["error"] != "unauthenticated" {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		}
	}
}

func TestChatsRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	headers := signup(t, srv.router, "chats@example.com")

	messages := []models.ChatMessage{
		{Sender: models.SenderUser, Text: "Who will win Lakers vs Celtics?"},
		{Sender: models.SenderAssistant, Text: "🏆 **Boston Celtics** is the favorite."},
	}
	rec := doJSONRequest(t, srv.router, http.MethodPost, "/chats", gin.H{
		"sport":    "basketball",
		"title":    "Lakers vs Celtics",
		"messages": messages,
	}, headers)
	assertStatus(t, rec, http.StatusOK)
	var saved struct {
		OK    bool                     `json:"ok"`
		Chat  models.Chat              `json:"chat"`
		Chats map[string][]models.Chat `json:"chats"`
	}
	decodeJSON(t, rec.Body.Bytes(), &saved)
	if !saved.OK || saved.Chat.ID == "" || len(saved.Chats["basketball"]) != 1 {
		t.Fatalf("unexpected save response %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/chats?sport=basketball", nil, headers)
	assertStatus(t, rec, http.StatusOK)
	var listed map[string][]models.Chat
	decodeJSON(t, rec.Body.Bytes(), &listed)
	got := listed["basketball"]
	if len(got) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(got))
	}
	if got[0].Title != "Lakers vs Celtics" || len(got[0].Messages) != 2 || got[0].Messages[1].Text != messages[1].Text {
		t.Fatalf("chat did not round trip: %+v", got[0])
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/chats?sport=hockey", nil, headers)
	assertStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != `{"hockey":[]}` {
		t.Fatalf("unexpected empty bucket %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/chats", gin.H{
		"sport":    "basketball",
		"messages": []gin.H{{"sender": "bot", "text": "?"}},
	}, headers)
	assertStatus(t, rec, http.StatusBadRequest)

	path := fmt.Sprintf("/chats/%s?sport=basketball", saved.Chat.ID)
	rec = doJSONRequest(t, srv.router, http.MethodDelete, path, nil, headers)
	assertStatus(t, rec, http.StatusOK)
	rec = doJSONRequest(t, srv.router, http.MethodDelete, path, nil, headers)
	assertStatus(t, rec, http.StatusNotFound)
}

type chatResponse struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
	Intent string `json:"intent"`
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "  "}, nil)
	assertStatus(t, rec, http.StatusBadRequest)
	var empty chatResponse
	decodeJSON(t, rec.Body.Bytes(), &empty)
	if empty.Reply != emptyMessageReply {
		t.Fatalf("unexpected empty reply %q", empty.Reply)
	}

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "hi", "images": []string{"data:image/bmp;base64,AAAA"}}, nil)
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "Who will win Lakers vs Celtics?", "sport": "basketball"}, nil)
	assertStatus(t, rec, http.StatusOK)
	var resp chatResponse
	decodeJSON(t, rec.Body.Bytes(), &resp)
	if !strings.Contains(resp.Reply, "**Boston Celtics** is the favorite") || !strings.Contains(resp.Reply, "Los Angeles Lakers: 2.25") || !strings.Contains(resp.Reply, "1.65") {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
	if resp.Source != advisor.SourceRules || resp.Intent != string(advisor.IntentPrediction) {
		t.Fatalf("unexpected source/intent %+v", resp)
	}
	if !strings.Contains(resp.Reply, "real AI replies") {
		t.Fatalf("missing not-configured note: %q", resp.Reply)
	}
}

func TestChatLearnsPreferencesForSignedInUser(t *testing.T) {
	srv := newTestServer(t)
	headers := signup(t, srv.router, "prefs@example.com")

	rec := doJSONRequest(t, srv.router, http.MethodGet, "/preferences", nil, headers)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"favorite_teams":[]`) {
		t.Fatalf("expected empty preferences, got %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "Should I bet on Lakers vs Celtics on the spread?", "sport": "basketball"}, headers)
	assertStatus(t, rec, http.StatusOK)

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/preferences", nil, headers)
	assertStatus(t, rec, http.StatusOK)
	var prefs models.Preferences
	decodeJSON(t, rec.Body.Bytes(), &prefs)
	if len(prefs.FavoriteTeams) != 2 || prefs.PreferredBetTypes[0] != "spread" || prefs.SportsInterests[0] != "basketball" {
		t.Fatalf("unexpected preferences %+v", prefs)
	}
}

type busyAdvisor struct{}

func (busyAdvisor) Chat(context.Context, advisor.Request) (advisor.Reply, error) {
	return advisor.Reply{}, worker.ErrQueueFull
}

func TestChatQueueFull(t *testing.T) {
	srv := newTestServer(t)
	srv.h.advisor = busyAdvisor{}

	rec := doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "Show matchups"}, nil)
	assertStatus(t, rec, http.StatusServiceUnavailable)
}

func TestChatLiveOddsError(t *testing.T) {
	srv := newTestServer(t)
	srv.odds.liveErr = &odds.Error{Kind: odds.KindTransport, Message: "connection refused"}

	rec := doJSONRequest(t, srv.router, http.MethodPost, "/chat", gin.H{"message": "Show live odds"}, nil)
	assertStatus(t, rec, http.StatusOK)
	var resp chatResponse
	decodeJSON(t, rec.Body.Bytes(), &resp)
	if !strings.Contains(resp.Reply, "Couldn’t load live odds: connection refused") || !strings.Contains(resp.Reply, "matchups") {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestStatusAndSports(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSONRequest(t, srv.router, http.MethodGet, "/status", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	var status struct {
		OK                bool   `json:"ok"`
		LLMConfigured     bool   `json:"llm_configured"`
		OddsConfigured    bool   `json:"odds_configured"`
		FantasyConfigured bool   `json:"fantasy_configured"`
		Cache             string `json:"cache"`
	}
	decodeJSON(t, rec.Body.Bytes(), &status)
	if !status.OK || status.LLMConfigured || !status.OddsConfigured || status.FantasyConfigured || status.Cache != "disabled" {
		t.Fatalf("unexpected status %s", rec.Body.String())
	}

	srv.h.cache = fakePinger{err: errors.New("connection refused")}
	rec = doJSONRequest(t, srv.router, http.MethodGet, "/status", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"cache":"unavailable"`) {
		t.Fatalf("expected unavailable cache, got %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/sports", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	var sports []string
	decodeJSON(t, rec.Body.Bytes(), &sports)
	if len(sports) != len(odds.Sports) || sports[0] != "basketball" {
		t.Fatalf("unexpected sports %v", sports)
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/sports?available=1", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"key":"basketball_nba"`) {
		t.Fatalf("unexpected provider sports %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/", nil, nil)
	assertStatus(t, rec, http.StatusOK)
}

func TestLLMCheck(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeChecker
		want    string
	}{
		{"unconfigured", fakeChecker{}, `"ok":false`},
		{"no model", fakeChecker{configured: true, err: fmt.Errorf("%w: last error: model_not_found", ai.ErrNoModel)}, `"hint"`},
		{"other error", fakeChecker{configured: true, err: errors.New("invalid api key")}, `"error":"invalid api key"`},
		{"working", fakeChecker{configured: true, reply: ai.Reply{Text: "OK", Model: "gpt-4o-mini"}}, `"model":"gpt-4o-mini"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			srv.h.llm = tt.checker
			rec := doJSONRequest(t, srv.router, http.MethodGet, "/llm-check", nil, nil)
			assertStatus(t, rec, http.StatusOK)
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("expected %s in %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestESPNStatus(t *testing.T) {
	srv := newTestServer(t)
	srv.h.scores = fakeScoreboard{games: []espn.Game{
		{ID: "1", State: espn.StateIn, HomeTeam: "Boston Celtics", AwayTeam: "Los Angeles Lakers"},
		{ID: "2", State: espn.StatePre},
	}}

	rec := doJSONRequest(t, srv.router, http.MethodGet, "/espn-status?sport=basketball", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		OK     bool   `json:"ok"`
		League string `json:"league"`
		Total  int    `json:"total"`
		Live   int    `json:"live"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !body.OK || body.League != "NBA" || body.Total != 2 || body.Live != 1 {
		t.Fatalf("unexpected espn status %s", rec.Body.String())
	}

	rec = doJSONRequest(t, srv.router, http.MethodGet, "/espn-status?sport=tennis", nil, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"ok":false`) {
		t.Fatalf("expected unsupported sport, got %s", rec.Body.String())
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSONRequest(t, srv.router, http.MethodPost, "/analyze", gin.H{"sport": "basketball", "team": "celtics"}, nil)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Sport  string               `json:"sport"`
		Events []odds.EventAnalysis `json:"events"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Sport != "basketball_nba" || len(body.Events) != 1 || body.Events[0].Bookmakers != 2 {
		t.Fatalf("unexpected analysis %s", rec.Body.String())
	}
	best := body.Events[0].Outcomes[0]
	if best.Name != "Los Angeles Lakers" || best.BestPrice != 2.5 || best.BestBookmaker != "DraftKings" {
		t.Fatalf("unexpected best price %+v", best)
	}

	rec = doJSONRequest(t, srv.router, http.MethodPost, "/analyze", gin.H{"sport": "basketball", "team": "knicks"}, nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), `"events":[]`) {
		t.Fatalf("expected no events, got %s", rec.Body.String())
	}

	srv.odds.err = &odds.Error{Kind: odds.KindConfig, Message: "odds API key not configured"}
	rec = doJSONRequest(t, srv.router, http.MethodPost, "/analyze", gin.H{"sport": "basketball"}, nil)
	assertStatus(t, rec, http.StatusServiceUnavailable)
}
