package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
)

// Коды ошибок Postgres, участвующие в классификации.
const (
	pgUniqueViolation       = "23505"
	pgNotNullViolation      = "23502"
	pgCheckViolation        = "23514"
	pgInsufficientPrivilege = "42501"
	pgInvalidAuthorization  = "28000"
)

// PostgresStore — продакшен-реализация Store поверх управляемого Postgres
// (бэкенд с row-level security: отказ политики приходит как 42501).
type PostgresStore struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	timeout time.Duration
}

// NewPostgresStore создаёт хранилище поверх готового пула соединений.
// timeout ограничивает каждый отдельный вызов; нулевое значение заменяется
// умолчанием в 15 секунд.
func NewPostgresStore(pool *pgxpool.Pool, log *slog.Logger, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PostgresStore{
		pool:    pool,
		log:     log.With("component", "remote_postgres"),
		timeout: timeout,
	}
}

// classify оборачивает ошибку pgx в *Error с таксономией спецификации.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindTransient
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		kind = KindNotFound
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case pgUniqueViolation:
			kind = KindConflict
		case pgInsufficientPrivilege, pgInvalidAuthorization:
			kind = KindPermission
		case pgNotNullViolation, pgCheckViolation:
			kind = KindValidation
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

const wordColumns = `id, swedish_word, kelly_level, kelly_source_id,
	frequency_rank, sidor_rank, is_ft, word_data, last_synced_at`

func scanWord(row pgx.Row) (*word.Word, error) {
	var w word.Word
	var data []byte
	err := row.Scan(&w.ID, &w.SwedishWord, &w.KellyLevel, &w.KellySourceID,
		&w.FrequencyRank, &w.SidorRank, &w.IsFT, &data, &w.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &w.WordData); err != nil {
			return nil, fmt.Errorf("decode word_data for %q: %w", w.SwedishWord, err)
		}
	}
	return &w, nil
}

func (s *PostgresStore) ListWords(ctx context.Context, afterID int64, limit int) ([]word.Word, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + wordColumns + `
		FROM words WHERE id > $1 ORDER BY id ASC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, classify("list_words", err)
	}
	defer rows.Close()

	var out []word.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, classify("list_words", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_words", err)
	}
	return out, nil
}

func (s *PostgresStore) ListProgress(ctx context.Context, userID string, afterWordID int64, limit int) ([]ProgressRow, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT
			p.user_id, p.word_id, w.swedish_word, p.is_learned, p.learned_date,
			p.user_meaning, p.custom_spelling, p.updated_at,
			w.id, w.swedish_word, w.kelly_level, w.kelly_source_id,
			w.frequency_rank, w.sidor_rank, w.is_ft, w.word_data, w.last_synced_at
		FROM user_progress p
		JOIN words w ON w.id = p.word_id
		WHERE p.user_id = $1 AND p.word_id > $2
		ORDER BY p.word_id ASC
		LIMIT $3`
	rows, err := s.pool.Query(ctx, query, userID, afterWordID, limit)
	if err != nil {
		return nil, classify("list_progress", err)
	}
	defer rows.Close()

	var out []ProgressRow
	for rows.Next() {
		var r ProgressRow
		var learned bool
		var data []byte
		err := rows.Scan(
			&r.Progress.UserID, &r.Progress.WordID, &r.Progress.WordSwedish,
			&learned, &r.Progress.LearnedDate,
			&r.Progress.UserMeaning, &r.Progress.CustomSpelling, &r.Progress.UpdatedAt,
			&r.Word.ID, &r.Word.SwedishWord, &r.Word.KellyLevel, &r.Word.KellySourceID,
			&r.Word.FrequencyRank, &r.Word.SidorRank, &r.Word.IsFT, &data, &r.Word.LastSyncedAt,
		)
		if err != nil {
			return nil, classify("list_progress", err)
		}
		if learned {
			r.Progress.IsLearned = 1
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &r.Word.WordData); err != nil {
				return nil, classify("list_progress", fmt.Errorf("decode word_data: %w", err))
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_progress", err)
	}
	return out, nil
}

func (s *PostgresStore) GetWordByID(ctx context.Context, id int64) (*word.Word, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + wordColumns + ` FROM words WHERE id = $1`
	w, err := scanWord(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify("get_word_by_id", err)
	}
	return w, nil
}

func (s *PostgresStore) GetWordByName(ctx context.Context, name string) (*word.Word, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + wordColumns + ` FROM words WHERE swedish_word = $1`
	w, err := scanWord(s.pool.QueryRow(ctx, query, word.NormalizeName(name)))
	if err != nil {
		return nil, classify("get_word_by_name", err)
	}
	return w, nil
}

func (s *PostgresStore) GetWordsByNames(ctx context.Context, names []string) ([]word.Word, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	normalized := make([]string, 0, len(names))
	for _, n := range names {
		normalized = append(normalized, word.NormalizeName(n))
	}

	query := `SELECT ` + wordColumns + ` FROM words WHERE swedish_word = ANY($1)`
	rows, err := s.pool.Query(ctx, query, normalized)
	if err != nil {
		return nil, classify("get_words_by_names", err)
	}
	defer rows.Close()

	var out []word.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, classify("get_words_by_names", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get_words_by_names", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertWord(ctx context.Context, w *word.Word) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := json.Marshal(w.WordData)
	if err != nil {
		return 0, &Error{Kind: KindValidation, Op: "insert_word", Err: err}
	}

	query := `INSERT INTO words
			(swedish_word, kelly_level, kelly_source_id, frequency_rank, sidor_rank, is_ft, word_data, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id`
	var id int64
	err = s.pool.QueryRow(ctx, query,
		word.NormalizeName(w.SwedishWord), w.KellyLevel, w.KellySourceID,
		w.FrequencyRank, w.SidorRank, w.IsFT, data,
	).Scan(&id)
	if err != nil {
		return 0, classify("insert_word", err)
	}
	return id, nil
}

func (s *PostgresStore) UpsertProgress(ctx context.Context, rows []progress.UserProgress) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO user_progress
			(user_id, word_id, is_learned, learned_date, user_meaning, custom_spelling, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			is_learned = EXCLUDED.is_learned,
			learned_date = EXCLUDED.learned_date,
			user_meaning = EXCLUDED.user_meaning,
			custom_spelling = EXCLUDED.custom_spelling,
			updated_at = now()`

	batch := &pgx.Batch{}
	for _, p := range rows {
		batch.Queue(query, p.UserID, p.WordID, p.Learned(), p.LearnedDate,
			p.UserMeaning, p.CustomSpelling)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return classify("upsert_progress", err)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteProgress(ctx context.Context, userID string, wordIDs []int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	if len(wordIDs) == 0 {
		_, err = s.pool.Exec(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID)
	} else {
		_, err = s.pool.Exec(ctx,
			`DELETE FROM user_progress WHERE user_id = $1 AND word_id = ANY($2)`,
			userID, wordIDs)
	}
	if err != nil {
		return classify("delete_progress", err)
	}
	return nil
}

func (s *PostgresStore) GetAPIKey(ctx context.Context, userID string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var key string
	err := s.pool.QueryRow(ctx,
		`SELECT api_key FROM user_api_keys WHERE user_id = $1`, userID).Scan(&key)
	if err != nil {
		return "", classify("get_api_key", err)
	}
	return key, nil
}

func (s *PostgresStore) UpsertAPIKey(ctx context.Context, userID, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_api_keys (user_id, api_key, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = now()`,
		userID, key)
	if err != nil {
		return classify("upsert_api_key", err)
	}
	return nil
}

func (s *PostgresStore) ListUploadHistory(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, file_name, list_name, row_count, uploaded_by, uploaded_at
		 FROM upload_history ORDER BY uploaded_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, classify("list_upload_history", err)
	}
	defer rows.Close()

	var out []UploadRecord
	for rows.Next() {
		var u UploadRecord
		if err := rows.Scan(&u.ID, &u.FileName, &u.ListName, &u.RowCount,
			&u.UploadedBy, &u.UploadedAt); err != nil {
			return nil, classify("list_upload_history", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list_upload_history", err)
	}
	return out, nil
}
