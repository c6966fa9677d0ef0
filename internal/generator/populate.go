package generator

import (
	"context"
	"time"

	"golang.org/x/exp/slog"

	"ordbank/internal/domain/word"
)

// WordStore — срез локального хранилища, нужный заданию наполнения.
type WordStore interface {
	ListWordsWithoutData() ([]word.Word, error)
	SaveWord(w *word.Word) error
}

// PopulateBatch генерирует данные для слов без содержимого. Сбой на
// одном слове не останавливает остальные: задание возвращает число
// успешно наполненных карточек и последнюю ошибку, если успехов не было.
func PopulateBatch(ctx context.Context, store WordStore, gen Generator, limit int, log *slog.Logger) (int, error) {
	pending, err := store.ListWordsWithoutData()
	if err != nil {
		return 0, err
	}
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	if len(pending) == 0 {
		return 0, nil
	}

	log.Info("Наполнение карточек", "pending", len(pending))

	populated := 0
	var lastErr error
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return populated, err
		}

		w := pending[i]
		data, err := gen.GenerateWordData(ctx, w.SwedishWord)
		if err != nil {
			log.Warn("Не удалось наполнить карточку", "word", w.SwedishWord, "error", err)
			lastErr = err
			continue
		}

		now := time.Now()
		data.PopulatedAt = &now
		w.WordData = word.MergeData(w.WordData, *data)

		if err := store.SaveWord(&w); err != nil {
			log.Warn("Не удалось сохранить карточку", "word", w.SwedishWord, "error", err)
			lastErr = err
			continue
		}
		populated++
	}

	if populated == 0 && lastErr != nil {
		return 0, lastErr
	}
	log.Info("Наполнение завершено", "populated", populated)
	return populated, nil
}
