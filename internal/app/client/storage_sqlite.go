package client

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
	"ordbank/internal/infrastructure/migration"
)

// bulkChunk ограничивает размер одной пачки при массовых записях,
// чтобы не упереться в лимит параметров sqlite.
const bulkChunk = 200

// SQLiteStorage — локальное зеркало словаря и прогресса. Все массовые
// применения страниц транзакционны: частично применённая страница не
// видна читателям.
type SQLiteStorage struct {
	db       *sqlx.DB
	notifier *Notifier
	log      *slog.Logger
}

func NewSQLiteStorage(path string, notifier *Notifier, log *slog.Logger) (*SQLiteStorage, error) {
	// Схема накатывается до открытия рабочего соединения.
	if err := migration.New(path, nil).Up(); err != nil {
		return nil, fmt.Errorf("ошибка миграции локальной базы: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	return &SQLiteStorage{
		db:       db,
		notifier: notifier,
		log:      log.With("component", "local_storage"),
	}, nil
}

// DB открывает доступ к соединению для соседних компонентов клиента
// (очередь синхронизации живёт в той же базе).
func (s *SQLiteStorage) DB() *sqlx.DB { return s.db }

func (s *SQLiteStorage) Close() error { return s.db.Close() }

// wordRow — строка таблицы words; word_data хранится как JSON-текст.
type wordRow struct {
	ID            int64        `db:"id"`
	SwedishWord   string       `db:"swedish_word"`
	KellyLevel    *int         `db:"kelly_level"`
	KellySourceID *int64       `db:"kelly_source_id"`
	FrequencyRank *int         `db:"frequency_rank"`
	SidorRank     *int         `db:"sidor_rank"`
	IsFT          bool         `db:"is_ft"`
	DataJSON      string       `db:"word_data"`
	LastSyncedAt  sql.NullTime `db:"last_synced_at"`
}

func (r *wordRow) toWord() (*word.Word, error) {
	w := &word.Word{
		ID:            r.ID,
		SwedishWord:   r.SwedishWord,
		KellyLevel:    r.KellyLevel,
		KellySourceID: r.KellySourceID,
		FrequencyRank: r.FrequencyRank,
		SidorRank:     r.SidorRank,
		IsFT:          r.IsFT,
	}
	if r.LastSyncedAt.Valid {
		w.LastSyncedAt = r.LastSyncedAt.Time
	}
	if r.DataJSON != "" {
		if err := json.Unmarshal([]byte(r.DataJSON), &w.WordData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга word_data для %q: %w", r.SwedishWord, err)
		}
	}
	return w, nil
}

const upsertWordQuery = `
	INSERT INTO words (swedish_word, id, kelly_level, kelly_source_id,
	                   frequency_rank, sidor_rank, is_ft, word_data, last_synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(swedish_word) DO UPDATE SET
		id              = excluded.id,
		kelly_level     = excluded.kelly_level,
		kelly_source_id = excluded.kelly_source_id,
		frequency_rank  = excluded.frequency_rank,
		sidor_rank      = excluded.sidor_rank,
		is_ft           = excluded.is_ft,
		word_data       = excluded.word_data,
		last_synced_at  = excluded.last_synced_at`

func execUpsertWord(e sqlx.Execer, w *word.Word) error {
	dataJSON, err := json.Marshal(w.WordData)
	if err != nil {
		return fmt.Errorf("ошибка сериализации word_data: %w", err)
	}
	_, err = e.Exec(upsertWordQuery,
		w.SwedishWord, w.ID, w.KellyLevel, w.KellySourceID,
		w.FrequencyRank, w.SidorRank, w.IsFT, string(dataJSON), w.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения слова %q: %w", w.SwedishWord, err)
	}
	return nil
}

// SaveWord сохраняет одно слово, сливая данные с уже закэшированными.
func (s *SQLiteStorage) SaveWord(w *word.Word) error {
	w.SwedishWord = word.NormalizeName(w.SwedishWord)
	if err := word.Validate(w); err != nil {
		return err
	}

	existing, err := s.GetWord(w.SwedishWord)
	if err != nil && !errors.Is(err, word.ErrNotFound) {
		return err
	}
	if existing != nil {
		merged := word.Merge(*existing, *w)
		w = &merged
	}

	if err := execUpsertWord(s.db, w); err != nil {
		return err
	}
	s.notifier.Publish(TopicWords)
	return nil
}

// ApplyWordPage применяет страницу слов из облака одной транзакцией.
// Повторное применение той же страницы не меняет состояние.
func (s *SQLiteStorage) ApplyWordPage(words []word.Word, syncedAt time.Time) error {
	if len(words) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for i := range words {
		w := words[i]
		w.SwedishWord = word.NormalizeName(w.SwedishWord)
		w.LastSyncedAt = syncedAt

		existing, err := getWordTx(tx, w.SwedishWord)
		if err != nil && !errors.Is(err, word.ErrNotFound) {
			return err
		}
		if existing != nil {
			w = word.Merge(*existing, w)
			w.LastSyncedAt = syncedAt
		}

		if err := execUpsertWord(tx, &w); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации страницы слов: %w", err)
	}
	s.notifier.Publish(TopicWords)
	return nil
}

const selectWordColumns = `SELECT swedish_word, id, kelly_level, kelly_source_id,
	frequency_rank, sidor_rank, is_ft, word_data, last_synced_at FROM words`

func getWordTx(q sqlx.Queryer, name string) (*word.Word, error) {
	var row wordRow
	err := sqlx.Get(q, &row, selectWordColumns+" WHERE swedish_word = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, word.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения слова %q: %w", name, err)
	}
	return row.toWord()
}

// GetWord возвращает слово по нормализованному текстовому ключу.
func (s *SQLiteStorage) GetWord(name string) (*word.Word, error) {
	return getWordTx(s.db, word.NormalizeName(name))
}

// GetWordByRemoteID возвращает слово по удалённому идентификатору.
func (s *SQLiteStorage) GetWordByRemoteID(id int64) (*word.Word, error) {
	var row wordRow
	err := sqlx.Get(s.db, &row, selectWordColumns+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, word.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения слова id=%d: %w", id, err)
	}
	return row.toWord()
}

// GetWordsByNames возвращает найденные слова; отсутствующие молча
// пропускаются, разрешение недостающих — забота оркестратора.
func (s *SQLiteStorage) GetWordsByNames(names []string) ([]word.Word, error) {
	if len(names) == 0 {
		return nil, nil
	}

	normalized := make([]string, 0, len(names))
	for _, n := range names {
		normalized = append(normalized, word.NormalizeName(n))
	}

	var out []word.Word
	for start := 0; start < len(normalized); start += bulkChunk {
		end := start + bulkChunk
		if end > len(normalized) {
			end = len(normalized)
		}

		query, args, err := sqlx.In(selectWordColumns+" WHERE swedish_word IN (?)", normalized[start:end])
		if err != nil {
			return nil, fmt.Errorf("ошибка построения запроса: %w", err)
		}

		var rows []wordRow
		if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("ошибка выборки слов: %w", err)
		}
		for i := range rows {
			w, err := rows[i].toWord()
			if err != nil {
				return nil, err
			}
			out = append(out, *w)
		}
	}
	return out, nil
}

// ListWords возвращает всё локальное зеркало словаря.
func (s *SQLiteStorage) ListWords() ([]word.Word, error) {
	var rows []wordRow
	if err := s.db.Select(&rows, selectWordColumns+" ORDER BY swedish_word"); err != nil {
		return nil, fmt.Errorf("ошибка выборки слов: %w", err)
	}

	out := make([]word.Word, 0, len(rows))
	for i := range rows {
		w, err := rows[i].toWord()
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

// ListWordsMissingStory возвращает слова с заполненными данными, но без
// мнемонической истории. Фильтр по JSON делаем на стороне Go.
func (s *SQLiteStorage) ListWordsMissingStory() ([]word.Word, error) {
	all, err := s.ListWords()
	if err != nil {
		return nil, err
	}

	var out []word.Word
	for _, w := range all {
		if w.WordData.Story == "" && !w.WordData.IsEmpty() {
			out = append(out, w)
		}
	}
	return out, nil
}

// ListWordsWithoutData возвращает слова, для которых ещё не сгенерировано
// содержимое.
func (s *SQLiteStorage) ListWordsWithoutData() ([]word.Word, error) {
	all, err := s.ListWords()
	if err != nil {
		return nil, err
	}

	var out []word.Word
	for _, w := range all {
		if w.WordData.IsEmpty() {
			out = append(out, w)
		}
	}
	return out, nil
}

// UpdateWordStory дописывает историю в word_data, не трогая остальное.
func (s *SQLiteStorage) UpdateWordStory(name, story string) error {
	w, err := s.GetWord(name)
	if err != nil {
		return err
	}
	w.WordData.Story = story

	if err := execUpsertWord(s.db, w); err != nil {
		return err
	}
	s.notifier.Publish(TopicWords)
	return nil
}

// CountWords возвращает размер локального словаря.
func (s *SQLiteStorage) CountWords() (int, error) {
	var count int
	if err := s.db.Get(&count, "SELECT COUNT(*) FROM words"); err != nil {
		return 0, fmt.Errorf("ошибка подсчета слов: %w", err)
	}
	return count, nil
}

// DeleteAllWords очищает зеркало словаря вместе с производными кэшами.
// Используется только принудительным обновлением после явного подтверждения.
func (s *SQLiteStorage) DeleteAllWords() error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"words", "word_usage", "quizzes"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("ошибка очистки %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации очистки: %w", err)
	}
	s.notifier.Publish(TopicWords)
	return nil
}

const upsertProgressQuery = `
	INSERT INTO progress (user_id, word_swedish, word_id, is_learned, is_reserve,
	                      learned_date, reserved_at, user_meaning, custom_spelling,
	                      srs_interval, srs_ease, srs_next_review, updated_at)
	VALUES (:user_id, :word_swedish, :word_id, :is_learned, :is_reserve,
	        :learned_date, :reserved_at, :user_meaning, :custom_spelling,
	        :srs_interval, :srs_ease, :srs_next_review, :updated_at)
	ON CONFLICT(user_id, word_swedish) DO UPDATE SET
		word_id         = excluded.word_id,
		is_learned      = excluded.is_learned,
		is_reserve      = excluded.is_reserve,
		learned_date    = excluded.learned_date,
		reserved_at     = excluded.reserved_at,
		user_meaning    = excluded.user_meaning,
		custom_spelling = excluded.custom_spelling,
		srs_interval    = excluded.srs_interval,
		srs_ease        = excluded.srs_ease,
		srs_next_review = excluded.srs_next_review,
		updated_at      = excluded.updated_at`

// SaveProgress сохраняет запись прогресса. Запись должна быть уже
// пропущена через Sanitize.
func (s *SQLiteStorage) SaveProgress(p *progress.UserProgress) error {
	p.WordSwedish = word.NormalizeName(p.WordSwedish)
	if err := progress.Validate(p); err != nil {
		return err
	}

	if _, err := s.db.NamedExec(upsertProgressQuery, p); err != nil {
		return fmt.Errorf("ошибка сохранения прогресса %q: %w", p.WordSwedish, err)
	}
	s.notifier.Publish(TopicProgress)
	return nil
}

// ApplyProgressPage сливает страницу удалённого прогресса с локальными
// записями одной транзакцией.
func (s *SQLiteStorage) ApplyProgressPage(rows []progress.UserProgress) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for i := range rows {
		remote := rows[i]
		remote.WordSwedish = word.NormalizeName(remote.WordSwedish)

		var local progress.UserProgress
		err := tx.Get(&local,
			"SELECT * FROM progress WHERE user_id = ? AND word_swedish = ?",
			remote.UserID, remote.WordSwedish)
		merged := remote
		if err == nil {
			merged = progress.Merge(local, remote)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ошибка чтения прогресса %q: %w", remote.WordSwedish, err)
		}

		if _, err := tx.NamedExec(upsertProgressQuery, &merged); err != nil {
			return fmt.Errorf("ошибка слияния прогресса %q: %w", merged.WordSwedish, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации страницы прогресса: %w", err)
	}
	s.notifier.Publish(TopicProgress)
	return nil
}

// GetProgress возвращает запись прогресса по текстовому ключу слова.
func (s *SQLiteStorage) GetProgress(userID, wordSwedish string) (*progress.UserProgress, error) {
	var p progress.UserProgress
	err := s.db.Get(&p,
		"SELECT * FROM progress WHERE user_id = ? AND word_swedish = ?",
		userID, word.NormalizeName(wordSwedish))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прогресса %q: %w", wordSwedish, err)
	}
	return &p, nil
}

// ListProgress возвращает весь прогресс пользователя.
func (s *SQLiteStorage) ListProgress(userID string) ([]progress.UserProgress, error) {
	var out []progress.UserProgress
	err := s.db.Select(&out,
		"SELECT * FROM progress WHERE user_id = ? ORDER BY word_swedish", userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки прогресса: %w", err)
	}
	return out, nil
}

// ListMeaningfulProgress возвращает записи, которые стоит отправлять в
// облако: выученные, отложенные или с ненулевым интервалом повторения.
func (s *SQLiteStorage) ListMeaningfulProgress(userID string) ([]progress.UserProgress, error) {
	var out []progress.UserProgress
	err := s.db.Select(&out, `
		SELECT * FROM progress
		WHERE user_id = ? AND (is_learned = 1 OR is_reserve = 1 OR srs_interval > 0)
		ORDER BY word_swedish`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки прогресса: %w", err)
	}
	return out, nil
}

// ListConflictedProgress возвращает записи с одновременно взведёнными
// флагами learned и reserve. Такие строки чинит Repair.
func (s *SQLiteStorage) ListConflictedProgress(userID string) ([]progress.UserProgress, error) {
	var out []progress.UserProgress
	err := s.db.Select(&out,
		"SELECT * FROM progress WHERE user_id = ? AND is_learned = 1 AND is_reserve = 1", userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки конфликтного прогресса: %w", err)
	}
	return out, nil
}

// ListDueProgress возвращает записи, подошедшие к повторению.
func (s *SQLiteStorage) ListDueProgress(userID string, now time.Time) ([]progress.UserProgress, error) {
	var out []progress.UserProgress
	err := s.db.Select(&out, `
		SELECT * FROM progress
		WHERE user_id = ? AND srs_next_review IS NOT NULL AND srs_next_review <= ?
		ORDER BY srs_next_review`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки прогресса к повторению: %w", err)
	}
	return out, nil
}

// DeleteProgress удаляет запись прогресса локально.
func (s *SQLiteStorage) DeleteProgress(userID, wordSwedish string) error {
	_, err := s.db.Exec("DELETE FROM progress WHERE user_id = ? AND word_swedish = ?",
		userID, word.NormalizeName(wordSwedish))
	if err != nil {
		return fmt.Errorf("ошибка удаления прогресса %q: %w", wordSwedish, err)
	}
	s.notifier.Publish(TopicProgress)
	return nil
}

// DeleteAllProgress очищает локальный прогресс пользователя.
func (s *SQLiteStorage) DeleteAllProgress(userID string) error {
	if _, err := s.db.Exec("DELETE FROM progress WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("ошибка очистки прогресса: %w", err)
	}
	s.notifier.Publish(TopicProgress)
	return nil
}

// SaveWordUsage кэширует примеры употребления слова.
func (s *SQLiteStorage) SaveWordUsage(name, usageJSON string, fetchedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO word_usage (word_swedish, usage_data, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(word_swedish) DO UPDATE SET
			usage_data = excluded.usage_data,
			fetched_at = excluded.fetched_at`,
		word.NormalizeName(name), usageJSON, fetchedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения употреблений %q: %w", name, err)
	}
	s.notifier.Publish(TopicWords)
	return nil
}

// GetWordUsage возвращает закэшированные примеры употребления.
func (s *SQLiteStorage) GetWordUsage(name string) (string, time.Time, error) {
	var row struct {
		UsageData string    `db:"usage_data"`
		FetchedAt time.Time `db:"fetched_at"`
	}
	err := s.db.Get(&row,
		"SELECT usage_data, fetched_at FROM word_usage WHERE word_swedish = ?",
		word.NormalizeName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, word.ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка получения употреблений %q: %w", name, err)
	}
	return row.UsageData, row.FetchedAt, nil
}

// SaveQuiz кэширует сгенерированный квиз по слову.
func (s *SQLiteStorage) SaveQuiz(name, quizJSON string, fetchedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO quizzes (word_swedish, quiz_data, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(word_swedish) DO UPDATE SET
			quiz_data  = excluded.quiz_data,
			fetched_at = excluded.fetched_at`,
		word.NormalizeName(name), quizJSON, fetchedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения квиза %q: %w", name, err)
	}
	s.notifier.Publish(TopicWords)
	return nil
}

// GetQuiz возвращает закэшированный квиз.
func (s *SQLiteStorage) GetQuiz(name string) (string, time.Time, error) {
	var row struct {
		QuizData  string    `db:"quiz_data"`
		FetchedAt time.Time `db:"fetched_at"`
	}
	err := s.db.Get(&row,
		"SELECT quiz_data, fetched_at FROM quizzes WHERE word_swedish = ?",
		word.NormalizeName(name))
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, word.ErrNotFound
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка получения квиза %q: %w", name, err)
	}
	return row.QuizData, row.FetchedAt, nil
}
