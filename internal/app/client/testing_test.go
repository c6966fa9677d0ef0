package client

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"ordbank/internal/app/client/config"
	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/word"
	"ordbank/internal/remote"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStorage(t *testing.T) (*SQLiteStorage, *Notifier) {
	t.Helper()

	notifier := NewNotifier()
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "ordbank.db"), notifier, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	return storage, notifier
}

// newTestSync собирает полный клиентский стек поверх временной базы и
// fakeRemote. Очереди выставляется миллисекундная задержка повторов,
// чтобы тесты не ждали реальных бэкоффов.
func newTestSync(t *testing.T, rstore remote.Store) (*SyncService, *SQLiteStorage, *SyncQueue) {
	t.Helper()

	storage, notifier := newTestStorage(t)
	cfg := &config.Config{
		UserID:   "u1",
		PageSize: remote.DefaultPageSize,
	}
	queue := NewSyncQueue(storage, rstore, notifier, newTestLogger())
	queue.retryDelay = time.Millisecond

	activity := NewActivityTracker(time.Hour)
	svc := NewSyncService(storage, rstore, queue, notifier, activity, cfg, newTestLogger())
	return svc, storage, queue
}

// fakeRemote — in-memory реализация remote.Store с перехватываемыми
// методами и счётчиками вызовов.
type fakeRemote struct {
	mu sync.Mutex

	words        []word.Word
	progressRows []remote.ProgressRow

	listWordsCalls    int
	listProgressCalls int

	upserted [][]progress.UserProgress
	inserted []word.Word
	deleted  [][]int64
	nextID   int64

	// Перехватчики; nil означает поведение по умолчанию.
	upsertHook func(rows []progress.UserProgress) error
	insertHook func(w *word.Word) (int64, error)
	getByName  func(name string) (*word.Word, error)

	// Сигналы для теста реентерабельности: первый ListWords сообщает о
	// входе и ждёт разрешения продолжить.
	entered chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 1000}
}

func notFoundErr(op string) error {
	return &remote.Error{Kind: remote.KindNotFound, Op: op, Err: errors.New("no rows")}
}

func (f *fakeRemote) ListWords(ctx context.Context, afterID int64, limit int) ([]word.Word, error) {
	f.mu.Lock()
	f.listWordsCalls++
	first := f.listWordsCalls == 1
	f.mu.Unlock()

	if first && f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sorted := make([]word.Word, len(f.words))
	copy(sorted, f.words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var page []word.Word
	for _, w := range sorted {
		if w.ID > afterID {
			page = append(page, w)
			if len(page) == limit {
				break
			}
		}
	}
	return page, nil
}

func (f *fakeRemote) ListProgress(ctx context.Context, userID string, afterWordID int64, limit int) ([]remote.ProgressRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listProgressCalls++

	sorted := make([]remote.ProgressRow, len(f.progressRows))
	copy(sorted, f.progressRows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Progress.WordID < sorted[j].Progress.WordID
	})

	var page []remote.ProgressRow
	for _, r := range sorted {
		if r.Progress.UserID == userID && r.Progress.WordID > afterWordID {
			page = append(page, r)
			if len(page) == limit {
				break
			}
		}
	}
	return page, nil
}

func (f *fakeRemote) GetWordByID(ctx context.Context, id int64) (*word.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.words {
		if w.ID == id {
			c := w
			return &c, nil
		}
	}
	return nil, notFoundErr("get_word_by_id")
}

func (f *fakeRemote) GetWordByName(ctx context.Context, name string) (*word.Word, error) {
	if f.getByName != nil {
		return f.getByName(name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.words {
		if word.NormalizeName(w.SwedishWord) == word.NormalizeName(name) {
			c := w
			return &c, nil
		}
	}
	return nil, notFoundErr("get_word_by_name")
}

func (f *fakeRemote) GetWordsByNames(ctx context.Context, names []string) ([]word.Word, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[word.NormalizeName(n)] = true
	}
	var found []word.Word
	for _, w := range f.words {
		if want[word.NormalizeName(w.SwedishWord)] {
			found = append(found, w)
		}
	}
	return found, nil
}

func (f *fakeRemote) InsertWord(ctx context.Context, w *word.Word) (int64, error) {
	if f.insertHook != nil {
		return f.insertHook(w)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	stored := *w
	stored.ID = f.nextID
	f.words = append(f.words, stored)
	f.inserted = append(f.inserted, stored)
	return stored.ID, nil
}

func (f *fakeRemote) UpsertProgress(ctx context.Context, rows []progress.UserProgress) error {
	if f.upsertHook != nil {
		if err := f.upsertHook(rows); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, rows)
	return nil
}

func (f *fakeRemote) DeleteProgress(ctx context.Context, userID string, wordIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, wordIDs)
	return nil
}

func (f *fakeRemote) GetAPIKey(ctx context.Context, userID string) (string, error) {
	return "", notFoundErr("get_api_key")
}

func (f *fakeRemote) UpsertAPIKey(ctx context.Context, userID, key string) error {
	return nil
}

func (f *fakeRemote) ListUploadHistory(ctx context.Context, limit int) ([]remote.UploadRecord, error) {
	return nil, nil
}

func (f *fakeRemote) wordsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listWordsCalls
}

func (f *fakeRemote) upsertedRows() []progress.UserProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []progress.UserProgress
	for _, batch := range f.upserted {
		all = append(all, batch...)
	}
	return all
}

// seedWords наполняет удалённый словарь n словами с ID 1..n.
func (f *fakeRemote) seedWords(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 1; i <= n; i++ {
		f.words = append(f.words, word.Word{
			ID:          int64(i),
			SwedishWord: "ord" + strconv.Itoa(i),
		})
	}
	f.nextID = int64(n + 1000)
}
