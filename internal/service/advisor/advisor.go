package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"betai/internal/events"
	"betai/internal/logger"
	"betai/internal/metrics"
	"betai/internal/models"
	"betai/internal/odds"
	"betai/internal/service/ai"
)

const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

const llmErrorPreview = 80

var ErrEmptyMessage = errors.New("message or images required")

// LLM is the chat model client used for free-form replies.
type LLM interface {
	Configured() bool
	Chat(ctx context.Context, req ai.Request) (ai.Reply, error)
}

// PreferenceStore loads and grows what is known about a signed-in user.
type PreferenceStore interface {
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	LearnPreferences(ctx context.Context, userID string, learned models.Preferences) (models.Preferences, error)
}

type Options struct {
	Odds         OddsSource
	Scores       ScoresSource
	Fantasy      FantasySource
	LLM          LLM
	Preferences  PreferenceStore
	Publisher    events.Publisher
	SystemPrompt string
	Logger       *zap.Logger
}

// Advisor answers chat messages, preferring the LLM and falling back to rule-based replies.
type Advisor struct {
	odds      OddsSource
	scores    ScoresSource
	fantasy   FantasySource
	llm       LLM
	prefs     PreferenceStore
	publisher events.Publisher
	prompt    string
	log       *zap.Logger
	now       func() time.Time
}

func New(opts Options) *Advisor {
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = ai.DefaultSystemPrompt
	}
	return &Advisor{
		odds:      opts.Odds,
		scores:    opts.Scores,
		fantasy:   opts.Fantasy,
		llm:       opts.LLM,
		prefs:     opts.Preferences,
		publisher: opts.Publisher,
		prompt:    opts.SystemPrompt,
		log:       logger.OrNop(opts.Logger),
		now:       time.Now,
	}
}

// Request is one incoming chat message. History holds earlier turns only.
type Request struct {
	UserID  string
	Message string
	Sport   string
	History []models.ChatMessage
	Images  []string
}

type Reply struct {
	Text   string `json:"reply"`
	Source string `json:"source"`
	Intent Intent `json:"intent"`
	Model  string `json:"model,omitempty"`
}

// Chat produces a reply. Only invalid input is returned as an error.
func (a *Advisor) Chat(ctx context.Context, req Request) (Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" && len(req.Images) == 0 {
		return Reply{}, ErrEmptyMessage
	}
	if len(req.Images) > 0 {
		if err := ai.ValidateImages(req.Images); err != nil {
			return Reply{}, err
		}
	}
	sport := odds.NormalizeSport(req.Sport)
	if sport == "" {
		sport = defaultSport
	}
	src := newOddsMemo(a.odds)
	reply := Reply{Intent: Classify(message)}

	var prefs models.Preferences
	if req.UserID != "" && a.prefs != nil {
		p, err := a.prefs.Preferences(ctx, req.UserID)
		if err != nil {
			a.log.Warn("load preferences failed", zap.String("user_id", req.UserID), zap.Error(err))
		}
		prefs = p
	}

	llmErr := ai.ErrNotConfigured
	if a.llm != nil && a.llm.Configured() {
		history := append(append([]models.ChatMessage(nil), req.History...), models.ChatMessage{
			Sender: models.SenderUser,
			Text:   message,
		})
		out, err := a.llm.Chat(ai.WithToolUser(ctx, req.UserID), ai.Request{
			SystemPrompt: ai.RenderSystemPrompt(a.prompt, odds.Label(sport), prefs),
			History:      history,
			Context:      NewBuilder(src, a.scores, a.fantasy, a.log).Build(ctx, message, sport),
			Images:       req.Images,
		})
		if err == nil {
			reply.Text, reply.Source, reply.Model = out.Text, SourceLLM, out.Model
		} else {
			llmErr = err
			a.log.Warn("llm reply failed, using rule-based reply", zap.Error(err))
		}
	}
	if reply.Source == "" {
		reply.Text = NewResponder(src).Respond(ctx, message, sport) + diagnosticNote(llmErr)
		reply.Source = SourceRules
	}

	metrics.ChatReplies.WithLabelValues(reply.Source, string(reply.Intent)).Inc()
	a.learn(ctx, req.UserID, message, sport, src)
	a.publish(ctx, req.UserID, sport, reply)
	return reply, nil
}

func (a *Advisor) learn(ctx context.Context, userID, message, sport string, src *oddsMemo) {
	if userID == "" || a.prefs == nil || message == "" {
		return
	}
	var teams []string
	if evs, ok := src.cached(odds.ResolveSportKey(sport)); ok {
		for _, e := range evs {
			teams = append(teams, e.HomeTeam, e.AwayTeam)
		}
	}
	learned := ExtractPreferences(message, sport, teams)
	if _, err := a.prefs.LearnPreferences(ctx, userID, learned); err != nil {
		a.log.Warn("learn preferences failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (a *Advisor) publish(ctx context.Context, userID, sport string, reply Reply) {
	err := a.publisher.Publish(ctx, events.ChatExchanged{
		UserID: userID,
		Sport:  sport,
		Intent: string(reply.Intent),
		Source: reply.Source,
		Model:  reply.Model,
		At:     a.now().UTC(),
	})
	if err != nil {
		a.log.Warn("publish chat event failed", zap.Error(err))
	}
}

// diagnosticNote explains why the reply did not come from the LLM.
func diagnosticNote(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ai.ErrNotConfigured):
		return "\n\n_To get **real AI replies**, set **OPENAI_API_KEY** (or **BETAI_PASSPHRASE** with an encrypted key file) and restart the server._"
	case errors.Is(err, ai.ErrBilling) || strings.Contains(err.Error(), "403"):
		return "\n\n_**AI replies are off:** the LLM project has no active billing. Add payment to that project, " +
			"or use an API key from a funded project, then restart the server._"
	default:
		msg := err.Error()
		if runes := []rune(msg); len(runes) > llmErrorPreview {
			msg = string(runes[:llmErrorPreview]) + "…"
		}
		return fmt.Sprintf("\n\n_(LLM failed: %s — check the LLM API key and model settings.)_", msg)
	}
}

// oddsMemo shares upstream results between the context builder, responder and
// preference learning of a single request.
type oddsMemo struct {
	src OddsSource

	mu      sync.Mutex
	bySport map[string]memoEntry
	live    []odds.LiveGroup
	liveErr error
	liveOK  bool
}

type memoEntry struct {
	events []odds.Event
	err    error
}

func newOddsMemo(src OddsSource) *oddsMemo {
	return &oddsMemo{src: src, bySport: make(map[string]memoEntry)}
}

func (m *oddsMemo) FetchOdds(ctx context.Context, sportKey string, markets ...string) ([]odds.Event, error) {
	key := sportKey + "|" + strings.Join(markets, ",")
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.bySport[key]; ok {
		return e.events, e.err
	}
	evs, err := m.src.FetchOdds(ctx, sportKey, markets...)
	m.bySport[key] = memoEntry{events: evs, err: err}
	return evs, err
}

// cached returns events already fetched during this request without calling upstream.
func (m *oddsMemo) cached(sportKey string, markets ...string) ([]odds.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.bySport[sportKey+"|"+strings.Join(markets, ",")]
	if !ok || e.err != nil {
		return nil, false
	}
	return e.events, true
}

func (m *oddsMemo) FetchLive(ctx context.Context) ([]odds.LiveGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.liveOK {
		m.live, m.liveErr = m.src.FetchLive(ctx)
		m.liveOK = true
	}
	return m.live, m.liveErr
}
