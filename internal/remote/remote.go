// Package remote описывает контракт удалённого реляционного хранилища —
// источника истины для коллекций words, user_progress, upload_history и
// user_api_keys. Реализации обязаны укладывать каждый вызов в явный таймаут
// и возвращать ошибки, классифицируемые через KindOf.
package remote

import (
	"context"
	"time"

	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
)

// DefaultPageSize — размер страницы пагинированных чтений. Конец данных
// определяется по странице короче запрошенного лимита.
const DefaultPageSize = 1000

// ProgressRow — строка user_progress, соединённая со своим словом.
// Слово нужно получателю, чтобы локальный прогресс никогда не ссылался
// на отсутствующую запись слова.
type ProgressRow struct {
	Progress progress.UserProgress
	Word     word.Word
}

// UploadRecord — запись истории массовых загрузок списков.
type UploadRecord struct {
	ID         int64     `db:"id"`
	FileName   string    `db:"file_name"`
	ListName   string    `db:"list_name"`
	RowCount   int       `db:"row_count"`
	UploadedBy string    `db:"uploaded_by"`
	UploadedAt time.Time `db:"uploaded_at"`
}

// Store — типизированный интерфейс удалённого хранилища.
//
// Пагинация keyset: вызывающий передаёт последний увиденный ID и лимит,
// строки возвращаются в порядке возрастания ID — это гарантирует полное
// покрытие без пропусков и дублей между страницами.
type Store interface {
	// ListWords возвращает страницу слов с id > afterID.
	ListWords(ctx context.Context, afterID int64, limit int) ([]word.Word, error)

	// ListProgress возвращает страницу прогресса пользователя, соединённую
	// со словами, с word_id > afterWordID.
	ListProgress(ctx context.Context, userID string, afterWordID int64, limit int) ([]ProgressRow, error)

	GetWordByID(ctx context.Context, id int64) (*word.Word, error)
	GetWordByName(ctx context.Context, name string) (*word.Word, error)

	// GetWordsByNames возвращает найденные слова; отсутствующие имена
	// просто не попадают в результат. Разбиение на чанки — забота вызывающего.
	GetWordsByNames(ctx context.Context, names []string) ([]word.Word, error)

	// InsertWord вставляет одну запись и возвращает назначенный ID.
	// Нарушение уникальности классифицируется как KindConflict.
	InsertWord(ctx context.Context, w *word.Word) (int64, error)

	// UpsertProgress выполняет пакетный merge-upsert по ключу
	// (user_id, word_id); существующие строки обновляются, не пропускаются.
	UpsertProgress(ctx context.Context, rows []progress.UserProgress) error

	DeleteProgress(ctx context.Context, userID string, wordIDs []int64) error

	GetAPIKey(ctx context.Context, userID string) (string, error)
	UpsertAPIKey(ctx context.Context, userID, key string) error

	ListUploadHistory(ctx context.Context, limit int) ([]UploadRecord, error)
}
