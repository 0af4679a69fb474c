package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"betai/internal/models"
)

// DefaultSystemPrompt is used when no prompt file is configured. {sport_label} is substituted per request.
const DefaultSystemPrompt = `You are BetAI, a friendly and knowledgeable betting advisor. You help users with sports betting: live odds, matchups, predictions, and responsible gambling tips.

Current sport context: {sport_label} (user can change sport in the app).

Guidelines:
- Use any "Current odds data" provided below when answering; cite real odds and matchups when you have them.
- Be concise but helpful. You can use light markdown (e.g. **bold** for team names or odds).
- If the user asks for live odds, matchups, or a prediction and data is provided, summarize it clearly.
- For "who will win" or "should I bet on" questions, name the favorite and the odds when you have the data.
- Mention Milano Cortina 2026 Olympics when relevant; if no Olympics data is provided, say it may not be in the feed yet.
- Gently remind users to bet responsibly when appropriate.
- If you don't have specific data, suggest they try "Show live odds" or "Show matchups" for their sport.`

const sportLabelPlaceholder = "{sport_label}"

// LoadSystemPrompt reads a prompt template from path; an empty path yields DefaultSystemPrompt.
func LoadSystemPrompt(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt, nil
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return "", fmt.Errorf("init prompt parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return "", fmt.Errorf("init prompt loader: %w", err)
	}
	docs, err := loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load system prompt: %w", err)
	}
	var builder strings.Builder
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(content)
	}
	if builder.Len() == 0 {
		return "", errors.New("system prompt file is empty")
	}
	return builder.String(), nil
}

// RenderSystemPrompt fills in the sport label and appends known user preferences.
func RenderSystemPrompt(template, sportLabel string, prefs models.Preferences) string {
	prompt := strings.ReplaceAll(template, sportLabelPlaceholder, sportLabel)
	if prefs.Empty() {
		return prompt
	}
	var lines []string
	if len(prefs.FavoriteTeams) > 0 {
		lines = append(lines, "- Favorite teams: "+strings.Join(prefs.FavoriteTeams, ", "))
	}
	if len(prefs.PreferredBetTypes) > 0 {
		lines = append(lines, "- Preferred bet types: "+strings.Join(prefs.PreferredBetTypes, ", "))
	}
	if len(prefs.SportsInterests) > 0 {
		lines = append(lines, "- Sports interests: "+strings.Join(prefs.SportsInterests, ", "))
	}
	return prompt + "\n\nWhat you know about this user (use it to personalize suggestions):\n" + strings.Join(lines, "\n")
}
