package generator

import (
	"context"
	"time"

	"ordbank/internal/domain/word"
)

// CacheTTL — срок годности закэшированного сгенерированного материала.
const CacheTTL = 7 * 24 * time.Hour

// Quiz — один вопрос с вариантами ответов.
type Quiz struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// Usage — примеры употребления слова с переводами.
type Usage struct {
	Examples []UsageExample `json:"examples"`
}

// UsageExample — одно предложение с переводом.
type UsageExample struct {
	Swedish string `json:"swedish"`
	English string `json:"english"`
}

// StudyCache — срез локального хранилища для сквозных кэшей учебного
// материала.
type StudyCache interface {
	GetQuiz(name string) (string, time.Time, error)
	SaveQuiz(name, quizJSON string, fetchedAt time.Time) error
	GetWordUsage(name string) (string, time.Time, error)
	SaveWordUsage(name, usageJSON string, fetchedAt time.Time) error
}

// QuizFor возвращает квиз по слову сквозь кэш: свежая запись отдаётся
// как есть, просроченная или отсутствующая генерируется заново и
// кэшируется.
func QuizFor(ctx context.Context, cache StudyCache, gen Generator, w word.Word, now time.Time) (string, error) {
	if data, fetchedAt, err := cache.GetQuiz(w.SwedishWord); err == nil && now.Sub(fetchedAt) < CacheTTL {
		return data, nil
	}

	data, err := gen.GenerateQuiz(ctx, w)
	if err != nil {
		return "", err
	}
	if err := cache.SaveQuiz(w.SwedishWord, data, now); err != nil {
		return "", err
	}
	return data, nil
}

// UsageFor возвращает примеры употребления сквозь кэш, по тем же
// правилам, что и QuizFor.
func UsageFor(ctx context.Context, cache StudyCache, gen Generator, w word.Word, now time.Time) (string, error) {
	if data, fetchedAt, err := cache.GetWordUsage(w.SwedishWord); err == nil && now.Sub(fetchedAt) < CacheTTL {
		return data, nil
	}

	data, err := gen.GenerateUsage(ctx, w)
	if err != nil {
		return "", err
	}
	if err := cache.SaveWordUsage(w.SwedishWord, data, now); err != nil {
		return "", err
	}
	return data, nil
}
