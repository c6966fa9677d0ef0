// Package generator порождает содержимое словарных карточек через LLM:
// значения, примеры, грамматические формы и мнемонические истории.
package generator

import (
	"context"

	"ordbank/internal/domain/word"
)

// Generator — контракт генерации словарного содержимого. Реализации
// должны возвращать ошибку, не паникуя, при любом сбое провайдера.
type Generator interface {
	// GenerateWordData генерирует полные данные карточки для слова.
	GenerateWordData(ctx context.Context, swedishWord string) (*word.WordData, error)

	// GenerateStory генерирует мнемоническую историю для уже
	// заполненной карточки.
	GenerateStory(ctx context.Context, w word.Word) (string, error)

	// GenerateQuiz генерирует квиз по слову и возвращает его как
	// JSON-текст, пригодный для кэширования.
	GenerateQuiz(ctx context.Context, w word.Word) (string, error)

	// GenerateUsage генерирует примеры употребления слова, также в
	// виде JSON-текста.
	GenerateUsage(ctx context.Context, w word.Word) (string, error)
}
