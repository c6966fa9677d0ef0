package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/exp/slog"

	"ordbank/internal/domain/word"
)

// DefaultModel используется, если модель не задана в конфигурации.
const DefaultModel = "claude-sonnet-4-0"

const systemPrompt = `You are a Swedish language tutor. Answer strictly with JSON,
no prose around it. All translations and explanations are in English.`

const wordDataPromptTemplate = `Generate a vocabulary card for the Swedish word %q.
Respond with a single JSON object with these optional fields:
"meanings" (array of {"translation","explanation","part_of_speech"}),
"examples" (array of Swedish sentences),
"synonyms", "antonyms" (arrays of Swedish words),
"forms" ({"base","definite","plural","past","supine","comparative"}),
"cefr" (one of A1,A2,B1,B2,C1,C2).
Omit fields you are not confident about.`

const storyPromptTemplate = `Write a short vivid mnemonic story (2-3 sentences, in English)
that helps remember the Swedish word %q meaning %q.
Respond with a JSON object: {"story": "..."}.`

const quizPromptTemplate = `Create one multiple-choice question testing the meaning of the
Swedish word %q. Respond with a JSON object:
{"question": "...", "options": ["...", "...", "...", "..."], "answer": "..."}
where "answer" is one of "options".`

const usagePromptTemplate = `Give 3-5 natural Swedish sentences using the word %q in
different contexts, each with an English translation.
Respond with a JSON object:
{"examples": [{"swedish": "...", "english": "..."}]}.`

// AnthropicGenerator — генератор поверх Anthropic Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  anthropic.Model
	log    *slog.Logger
}

func NewAnthropicGenerator(apiKey, model string, log *slog.Logger) *AnthropicGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicGenerator{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		log:    log.With("component", "generator"),
	}
}

func (g *AnthropicGenerator) complete(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("ошибка запроса к модели: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return stripCodeFences(sb.String()), nil
}

// GenerateWordData генерирует данные карточки и разбирает ответ модели.
func (g *AnthropicGenerator) GenerateWordData(ctx context.Context, swedishWord string) (*word.WordData, error) {
	raw, err := g.complete(ctx, fmt.Sprintf(wordDataPromptTemplate, swedishWord))
	if err != nil {
		return nil, err
	}

	var data word.WordData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		g.log.Debug("model returned unparseable payload", "word", swedishWord, "error", err)
		return nil, fmt.Errorf("ошибка разбора ответа модели для %q: %w", swedishWord, err)
	}
	if data.IsEmpty() {
		return nil, fmt.Errorf("модель вернула пустую карточку для %q", swedishWord)
	}
	return &data, nil
}

// GenerateStory генерирует мнемоническую историю по первому значению слова.
func (g *AnthropicGenerator) GenerateStory(ctx context.Context, w word.Word) (string, error) {
	meaning := ""
	if len(w.WordData.Meanings) > 0 {
		meaning = w.WordData.Meanings[0].Translation
	}

	raw, err := g.complete(ctx, fmt.Sprintf(storyPromptTemplate, w.SwedishWord, meaning))
	if err != nil {
		return "", err
	}

	var payload struct {
		Story string `json:"story"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("ошибка разбора истории для %q: %w", w.SwedishWord, err)
	}
	if payload.Story == "" {
		return "", fmt.Errorf("модель вернула пустую историю для %q", w.SwedishWord)
	}
	return payload.Story, nil
}

// GenerateQuiz генерирует квиз и возвращает проверенный JSON-текст.
func (g *AnthropicGenerator) GenerateQuiz(ctx context.Context, w word.Word) (string, error) {
	raw, err := g.complete(ctx, fmt.Sprintf(quizPromptTemplate, w.SwedishWord))
	if err != nil {
		return "", err
	}

	var payload Quiz
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("ошибка разбора квиза для %q: %w", w.SwedishWord, err)
	}
	if payload.Question == "" || len(payload.Options) < 2 {
		return "", fmt.Errorf("модель вернула неполный квиз для %q", w.SwedishWord)
	}
	return raw, nil
}

// GenerateUsage генерирует примеры употребления и возвращает проверенный
// JSON-текст.
func (g *AnthropicGenerator) GenerateUsage(ctx context.Context, w word.Word) (string, error) {
	raw, err := g.complete(ctx, fmt.Sprintf(usagePromptTemplate, w.SwedishWord))
	if err != nil {
		return "", err
	}

	var payload Usage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("ошибка разбора употреблений для %q: %w", w.SwedishWord, err)
	}
	if len(payload.Examples) == 0 {
		return "", fmt.Errorf("модель вернула пустые употребления для %q", w.SwedishWord)
	}
	return raw, nil
}

// stripCodeFences снимает обёртку ```json ... ```, если модель её добавила.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
