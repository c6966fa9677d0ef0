package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/exp/slog"

	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
	"ordbank/internal/remote"
)

// Операции очереди синхронизации.
const (
	OpUpsertProgress = "upsert_progress"
	OpInsertWord     = "insert_word"
	OpDeleteProgress = "delete_progress"
)

// Статусы элементов очереди.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// QueueItem — одна отложенная мутация удалённого хранилища.
type QueueItem struct {
	ID         string    `db:"id"`
	Op         string    `db:"op"`
	Payload    string    `db:"payload"`
	Attempts   int       `db:"attempts"`
	LastError  string    `db:"last_error"`
	Status     string    `db:"status"`
	EnqueuedAt time.Time `db:"enqueued_at"`
}

// QueueCounts — сводка состояния очереди для подписчиков.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
}

// deleteProgressPayload — аргументы операции delete_progress.
type deleteProgressPayload struct {
	UserID  string  `json:"user_id"`
	WordIDs []int64 `json:"word_ids"`
}

// SyncQueue — единственный писатель мутаций прогресса в удалённое
// хранилище. Элементы durable: переживают перезапуск клиента. Для
// каждого элемента одновременно выполняется не больше одной попытки.
type SyncQueue struct {
	db         *sqlx.DB
	remote     remote.Store
	storage    *SQLiteStorage
	notifier   *Notifier
	log        *slog.Logger
	maxRetries int
	retryDelay time.Duration

	mu       sync.Mutex
	inFlight map[string]bool

	deliveries sync.WaitGroup
}

func NewSyncQueue(storage *SQLiteStorage, rstore remote.Store, notifier *Notifier, log *slog.Logger) *SyncQueue {
	return &SyncQueue{
		db:         storage.DB(),
		remote:     rstore,
		storage:    storage,
		notifier:   notifier,
		log:        log.With("component", "sync_queue"),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		inFlight:   make(map[string]bool),
	}
}

// Enqueue добавляет операцию в очередь, сразу запускает фоновую попытку
// доставки и возвращает идентификатор, не дожидаясь сети. Недоставленный
// элемент остаётся в очереди и будет повторён следующим Flush.
func (q *SyncQueue) Enqueue(op string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации операции %s: %w", op, err)
	}

	item := QueueItem{
		ID:         uuid.NewString(),
		Op:         op,
		Payload:    string(data),
		Status:     StatusPending,
		EnqueuedAt: time.Now(),
	}

	_, err = q.db.NamedExec(`
		INSERT INTO sync_queue (id, op, payload, attempts, last_error, status, enqueued_at)
		VALUES (:id, :op, :payload, :attempts, :last_error, :status, :enqueued_at)`, &item)
	if err != nil {
		return "", fmt.Errorf("ошибка постановки в очередь: %w", err)
	}

	q.notifier.Publish(TopicQueue)

	q.deliveries.Add(1)
	go func() {
		defer q.deliveries.Done()
		q.processItem(context.Background(), &item)
	}()

	return item.ID, nil
}

// Wait блокируется до завершения запущенных фоновых доставок.
func (q *SyncQueue) Wait() {
	q.deliveries.Wait()
}

// EnqueueUpsertProgress ставит в очередь отправку записи прогресса.
func (q *SyncQueue) EnqueueUpsertProgress(p progress.UserProgress) (string, error) {
	return q.Enqueue(OpUpsertProgress, p)
}

// EnqueueInsertWord ставит в очередь вставку захваченного слова.
func (q *SyncQueue) EnqueueInsertWord(w word.Word) (string, error) {
	return q.Enqueue(OpInsertWord, w)
}

// EnqueueDeleteProgress ставит в очередь удаление прогресса в облаке.
func (q *SyncQueue) EnqueueDeleteProgress(userID string, wordIDs []int64) (string, error) {
	return q.Enqueue(OpDeleteProgress, deleteProgressPayload{UserID: userID, WordIDs: wordIDs})
}

// Flush последовательно выполняет все ожидающие элементы. Ошибка одного
// элемента не останавливает остальные: failed-элементы изолируются и
// ждут ручного решения, transient-ошибки повторяются в рамках лимита.
func (q *SyncQueue) Flush(ctx context.Context) error {
	var items []QueueItem
	err := q.db.Select(&items,
		"SELECT * FROM sync_queue WHERE status = ? ORDER BY enqueued_at", StatusPending)
	if err != nil {
		return fmt.Errorf("ошибка чтения очереди: %w", err)
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.processItem(ctx, &items[i])
	}

	q.notifier.Publish(TopicQueue)
	return nil
}

func (q *SyncQueue) processItem(ctx context.Context, item *QueueItem) {
	q.mu.Lock()
	if q.inFlight[item.ID] {
		q.mu.Unlock()
		return
	}
	q.inFlight[item.ID] = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.inFlight, item.ID)
		q.mu.Unlock()
	}()

	// Снимок мог устареть, пока элемент ждал inFlight: фоновая доставка
	// и Flush не должны выполнить один элемент дважды.
	var fresh QueueItem
	err := q.db.Get(&fresh, "SELECT * FROM sync_queue WHERE id = ?", item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return
	}
	if err != nil {
		q.log.Error("failed to reload queue item", "id", item.ID, "error", err)
		return
	}
	if fresh.Status == StatusFailed {
		return
	}
	item = &fresh

	q.setStatus(item.ID, StatusProcessing, "")

	var lastErr error
	for attempt := item.Attempts; attempt < q.maxRetries; attempt++ {
		if attempt > item.Attempts {
			select {
			case <-ctx.Done():
				q.setStatus(item.ID, StatusPending, ctx.Err().Error())
				return
			case <-time.After(q.retryDelay):
			}
		}

		lastErr = q.execute(ctx, item)
		q.bumpAttempts(item.ID)

		if lastErr == nil {
			q.remove(item.ID)
			return
		}

		switch remote.KindOf(lastErr) {
		case remote.KindConflict:
			// Строка уже существует в облаке: цель достигнута.
			q.log.Debug("queue item resolved as conflict", "id", item.ID, "op", item.Op)
			q.remove(item.ID)
			return
		case remote.KindPermission, remote.KindValidation:
			q.log.Warn("queue item failed permanently",
				"id", item.ID, "op", item.Op, "error", lastErr)
			q.setStatus(item.ID, StatusFailed, lastErr.Error())
			return
		case remote.KindTransient:
			q.log.Debug("queue item transient failure, will retry",
				"id", item.ID, "op", item.Op, "attempt", attempt+1, "error", lastErr)
		default:
			q.setStatus(item.ID, StatusFailed, lastErr.Error())
			return
		}
	}

	// Лимит повторов исчерпан.
	reason := "retry limit exceeded"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	q.log.Warn("queue item exhausted retries", "id", item.ID, "op", item.Op, "error", reason)
	q.setStatus(item.ID, StatusFailed, reason)
}

// execute выполняет операцию против удалённого хранилища.
func (q *SyncQueue) execute(ctx context.Context, item *QueueItem) error {
	switch item.Op {
	case OpUpsertProgress:
		var p progress.UserProgress
		if err := json.Unmarshal([]byte(item.Payload), &p); err != nil {
			return &remote.Error{Kind: remote.KindValidation, Op: item.Op, Err: err}
		}
		// Захваченное офлайн слово получает удалённый ID только к моменту
		// доставки. Дозаполняем его по имени перед отправкой.
		if p.WordID == 0 && p.WordSwedish != "" {
			w, err := q.remote.GetWordByName(ctx, p.WordSwedish)
			if err != nil {
				return err
			}
			p.WordID = w.ID
			if err := q.storage.SaveProgress(&p); err != nil {
				q.log.Warn("failed to store resolved word id locally",
					"word", p.WordSwedish, "error", err)
			}
		}
		return q.remote.UpsertProgress(ctx, []progress.UserProgress{p})

	case OpInsertWord:
		var w word.Word
		if err := json.Unmarshal([]byte(item.Payload), &w); err != nil {
			return &remote.Error{Kind: remote.KindValidation, Op: item.Op, Err: err}
		}
		id, err := q.remote.InsertWord(ctx, &w)
		if err != nil {
			return err
		}
		// Назначенный облаком ID дописывается в локальное зеркало.
		w.ID = id
		if err := q.storage.SaveWord(&w); err != nil {
			q.log.Warn("failed to store assigned word id locally",
				"word", w.SwedishWord, "id", id, "error", err)
		}
		return nil

	case OpDeleteProgress:
		var p deleteProgressPayload
		if err := json.Unmarshal([]byte(item.Payload), &p); err != nil {
			return &remote.Error{Kind: remote.KindValidation, Op: item.Op, Err: err}
		}
		return q.remote.DeleteProgress(ctx, p.UserID, p.WordIDs)

	default:
		return &remote.Error{Kind: remote.KindValidation, Op: item.Op,
			Err: fmt.Errorf("неизвестная операция очереди: %s", item.Op)}
	}
}

func (q *SyncQueue) setStatus(id, status, lastError string) {
	_, err := q.db.Exec(
		"UPDATE sync_queue SET status = ?, last_error = ? WHERE id = ?",
		status, lastError, id)
	if err != nil {
		q.log.Error("failed to update queue item status", "id", id, "error", err)
	}
}

func (q *SyncQueue) bumpAttempts(id string) {
	if _, err := q.db.Exec("UPDATE sync_queue SET attempts = attempts + 1 WHERE id = ?", id); err != nil {
		q.log.Error("failed to bump queue item attempts", "id", id, "error", err)
	}
}

func (q *SyncQueue) remove(id string) {
	if _, err := q.db.Exec("DELETE FROM sync_queue WHERE id = ?", id); err != nil {
		q.log.Error("failed to remove queue item", "id", id, "error", err)
	}
}

// Counts возвращает сводку очереди по статусам.
func (q *SyncQueue) Counts() (QueueCounts, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	err := q.db.Select(&rows, "SELECT status, COUNT(*) AS n FROM sync_queue GROUP BY status")
	if err != nil {
		return QueueCounts{}, fmt.Errorf("ошибка подсчета очереди: %w", err)
	}

	var c QueueCounts
	for _, r := range rows {
		switch r.Status {
		case StatusPending:
			c.Pending = r.N
		case StatusProcessing:
			c.Processing = r.N
		case StatusFailed:
			c.Failed = r.N
		}
	}
	return c, nil
}

// ListFailed возвращает элементы, требующие ручного решения.
func (q *SyncQueue) ListFailed() ([]QueueItem, error) {
	var items []QueueItem
	err := q.db.Select(&items,
		"SELECT * FROM sync_queue WHERE status = ? ORDER BY enqueued_at", StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	return items, nil
}

// RetryFailed возвращает failed-элементы в очередь с обнулённым счётчиком.
func (q *SyncQueue) RetryFailed() (int, error) {
	res, err := q.db.Exec(
		"UPDATE sync_queue SET status = ?, attempts = 0, last_error = '' WHERE status = ?",
		StatusPending, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("ошибка возврата элементов в очередь: %w", err)
	}
	n, _ := res.RowsAffected()
	q.notifier.Publish(TopicQueue)
	return int(n), nil
}

// ClearFailed удаляет failed-элементы без выполнения.
func (q *SyncQueue) ClearFailed() (int, error) {
	res, err := q.db.Exec("DELETE FROM sync_queue WHERE status = ?", StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки очереди: %w", err)
	}
	n, _ := res.RowsAffected()
	q.notifier.Publish(TopicQueue)
	return int(n), nil
}
