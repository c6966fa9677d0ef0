package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/exp/slog"

	"ordbank/internal/app/client/config"
	"ordbank/internal/domain/progress"
	"ordbank/internal/domain/srs"
	"ordbank/internal/domain/word"
	"ordbank/internal/remote"
)

var (
	// ErrSyncInProgress возвращается, когда синхронизация уже идёт.
	// Повторный запуск — no-op, вызывающий не должен ждать.
	ErrSyncInProgress = errors.New("синхронизация уже выполняется")

	// ErrConfirmationRequired возвращается деструктивными операциями,
	// вызванными без явного подтверждения.
	ErrConfirmationRequired = errors.New("операция требует явного подтверждения")

	// ErrNoUser возвращается, когда пользователь не настроен.
	ErrNoUser = errors.New("пользователь не настроен")
)

// pushChunk ограничивает размер пачки при разрешении имён и отправке
// прогресса в облако.
const pushChunk = 200

// SyncResult — итог одного прохода синхронизации.
type SyncResult struct {
	WordsSynced    int           `json:"words_synced"`
	ProgressSynced int           `json:"progress_synced"`
	Pages          int           `json:"pages"`
	QueueFlushed   bool          `json:"queue_flushed"`
	Duration       time.Duration `json:"duration"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
}

// SyncService — оркестратор синхронизации между локальным зеркалом и
// удалённым хранилищем. Все мутации прогресса из UI идут через очередь;
// сервис сам пишет в облако только при массовой выгрузке.
type SyncService struct {
	storage  *SQLiteStorage
	remote   remote.Store
	queue    *SyncQueue
	notifier *Notifier
	activity *ActivityTracker
	cfg      *config.Config
	log      *slog.Logger

	mu        sync.RWMutex
	isSyncing bool
	lastSync  time.Time

	scheduler *gocron.Scheduler
}

func NewSyncService(storage *SQLiteStorage, rstore remote.Store, queue *SyncQueue,
	notifier *Notifier, activity *ActivityTracker, cfg *config.Config, log *slog.Logger) *SyncService {
	return &SyncService{
		storage:  storage,
		remote:   rstore,
		queue:    queue,
		notifier: notifier,
		activity: activity,
		cfg:      cfg,
		log:      log.With("component", "sync"),
	}
}

// begin взводит флаг выполнения. Возвращает ErrSyncInProgress, если
// другой проход уже идёт.
func (s *SyncService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSyncing {
		return ErrSyncInProgress
	}
	s.isSyncing = true
	return nil
}

func (s *SyncService) end() {
	s.mu.Lock()
	s.isSyncing = false
	s.lastSync = time.Now()
	s.mu.Unlock()
}

// IsSyncing проверяет, выполняется ли синхронизация.
func (s *SyncService) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// LastSync возвращает время последнего завершённого прохода.
func (s *SyncService) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

func (s *SyncService) pageSize() int {
	if s.cfg.PageSize > 0 {
		return s.cfg.PageSize
	}
	return remote.DefaultPageSize
}

// SyncAll выполняет полный проход: словарь, затем прогресс, затем очередь.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	result := &SyncResult{StartTime: time.Now()}
	s.log.Info("Начало полной синхронизации")

	if err := s.syncWords(ctx, result); err != nil {
		return nil, err
	}
	if s.cfg.HasUser() {
		if err := s.syncProgress(ctx, result); err != nil {
			return nil, err
		}
	}
	if err := s.queue.Flush(ctx); err != nil {
		s.log.Warn("Ошибка выполнения очереди", "error", err)
	} else {
		result.QueueFlushed = true
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	s.log.Info("Полная синхронизация завершена",
		"words", result.WordsSynced,
		"progress", result.ProgressSynced,
		"pages", result.Pages,
		"duration", result.Duration,
	)
	return result, nil
}

// SyncProgress синхронизирует только прогресс пользователя и выполняет
// очередь. silent подавляет информационные логи фонового прохода.
func (s *SyncService) SyncProgress(ctx context.Context, silent bool) (*SyncResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	result := &SyncResult{StartTime: time.Now()}
	if !silent {
		s.log.Info("Начало синхронизации прогресса")
	}

	if err := s.syncProgress(ctx, result); err != nil {
		return nil, err
	}
	if err := s.queue.Flush(ctx); err != nil {
		s.log.Warn("Ошибка выполнения очереди", "error", err)
	} else {
		result.QueueFlushed = true
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if !silent {
		s.log.Info("Синхронизация прогресса завершена",
			"progress", result.ProgressSynced, "duration", result.Duration)
	}
	return result, nil
}

// syncWords скачивает словарь постранично. Конец данных — страница
// короче лимита; каждая страница применяется одной транзакцией.
func (s *SyncService) syncWords(ctx context.Context, result *SyncResult) error {
	limit := s.pageSize()
	var afterID int64

	for {
		page, err := s.remote.ListWords(ctx, afterID, limit)
		if err != nil {
			return fmt.Errorf("ошибка скачивания слов: %w", err)
		}
		if len(page) == 0 {
			break
		}

		if err := s.storage.ApplyWordPage(page, time.Now()); err != nil {
			return err
		}

		result.WordsSynced += len(page)
		result.Pages++
		afterID = page[len(page)-1].ID

		if len(page) < limit {
			break
		}
	}
	return nil
}

// syncProgress скачивает прогресс пользователя постранично. Слова из
// строк применяются до самого прогресса, поэтому локальный прогресс
// никогда не ссылается на отсутствующее слово.
func (s *SyncService) syncProgress(ctx context.Context, result *SyncResult) error {
	if !s.cfg.HasUser() {
		return ErrNoUser
	}

	limit := s.pageSize()
	var afterWordID int64
	now := time.Now()

	for {
		page, err := s.remote.ListProgress(ctx, s.cfg.UserID, afterWordID, limit)
		if err != nil {
			return fmt.Errorf("ошибка скачивания прогресса: %w", err)
		}
		if len(page) == 0 {
			break
		}

		words := make([]word.Word, 0, len(page))
		rows := make([]progress.UserProgress, 0, len(page))
		for _, r := range page {
			words = append(words, r.Word)

			p := r.Progress
			p.WordSwedish = word.NormalizeName(r.Word.SwedishWord)
			// Противоречивые строки чинятся прямо при скачивании.
			if repaired, changed := progress.Repair(p, now); changed {
				s.log.Warn("Исправлена противоречивая запись прогресса",
					"word", p.WordSwedish)
				p = repaired
			}
			rows = append(rows, p)
		}

		if err := s.storage.ApplyWordPage(words, now); err != nil {
			return err
		}
		if err := s.storage.ApplyProgressPage(rows); err != nil {
			return err
		}

		result.ProgressSynced += len(page)
		result.Pages++
		afterWordID = page[len(page)-1].Progress.WordID

		if len(page) < limit {
			break
		}
	}
	return nil
}

// UpsertProgress — единая точка мутации прогресса. Слово сперва
// разрешается (локально, затем в облаке с самовосстановлением зеркала);
// только после этого кандидат проходит санитизацию против текущей
// локальной записи, сохраняется и ставится в очередь на отправку.
// Неизвестное ни одному хранилищу слово — word.ErrNotFound: прогресс
// никогда не создаёт локальную сироту.
func (s *SyncService) UpsertProgress(ctx context.Context, c progress.Candidate) (*progress.UserProgress, error) {
	if c.UserID == "" {
		c.UserID = s.cfg.UserID
	}
	if c.UserID == "" {
		return nil, ErrNoUser
	}
	c.WordSwedish = word.NormalizeName(c.WordSwedish)
	s.activity.Touch()

	w, err := s.ResolveWord(ctx, c.WordSwedish)
	if err != nil {
		return nil, err
	}

	existing, err := s.storage.GetProgress(c.UserID, c.WordSwedish)
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		return nil, err
	}

	sanitized := progress.Sanitize(c, existing, time.Now())
	if sanitized.WordID == 0 && w.ID > 0 {
		sanitized.WordID = w.ID
	}

	if err := s.storage.SaveProgress(&sanitized); err != nil {
		return nil, err
	}
	if _, err := s.queue.EnqueueUpsertProgress(sanitized); err != nil {
		return nil, err
	}
	return &sanitized, nil
}

// ReviewWord применяет ответ пользователя на повторении: пересчитывает
// SRS-поля и сохраняет их локально и через очередь.
func (s *SyncService) ReviewWord(ctx context.Context, wordSwedish, difficulty string) (*progress.UserProgress, error) {
	d, err := srs.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	if !s.cfg.HasUser() {
		return nil, ErrNoUser
	}
	s.activity.Touch()

	wordSwedish = word.NormalizeName(wordSwedish)
	w, err := s.ResolveWord(ctx, wordSwedish)
	if err != nil {
		return nil, err
	}

	existing, err := s.storage.GetProgress(s.cfg.UserID, wordSwedish)
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		return nil, err
	}

	ease := progress.DefaultEase
	interval := 0
	if existing != nil {
		ease = existing.SRSEase
		interval = existing.SRSInterval
	}

	now := time.Now()
	res := srs.ComputeNextInterval(ease, interval, d, now)

	c := progress.Candidate{
		UserID:        s.cfg.UserID,
		WordSwedish:   wordSwedish,
		SRSInterval:   &res.Interval,
		SRSEase:       &res.Ease,
		SRSNextReview: &res.NextReview,
	}
	sanitized := progress.Sanitize(c, existing, now)
	if sanitized.WordID == 0 && w.ID > 0 {
		sanitized.WordID = w.ID
	}

	if err := s.storage.SaveProgress(&sanitized); err != nil {
		return nil, err
	}
	if _, err := s.queue.EnqueueUpsertProgress(sanitized); err != nil {
		return nil, err
	}
	return &sanitized, nil
}

// PushLocalToCloud выгружает весь значимый локальный прогресс в облако.
// Используется для восстановления облака после локальной работы офлайн.
func (s *SyncService) PushLocalToCloud(ctx context.Context) (int, error) {
	if !s.cfg.HasUser() {
		return 0, ErrNoUser
	}
	if err := s.begin(); err != nil {
		return 0, err
	}
	defer s.end()

	rows, err := s.storage.ListMeaningfulProgress(s.cfg.UserID)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	s.log.Info("Выгрузка локального прогресса в облако", "rows", len(rows))

	pushed := 0
	for start := 0; start < len(rows); start += pushChunk {
		end := start + pushChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		// Разрешаем имена в удалённые ID для строк, где ID ещё нет.
		var missing []string
		for _, p := range chunk {
			if p.WordID == 0 {
				missing = append(missing, p.WordSwedish)
			}
		}
		if len(missing) > 0 {
			found, err := s.remote.GetWordsByNames(ctx, missing)
			if err != nil {
				return pushed, fmt.Errorf("ошибка разрешения имён: %w", err)
			}
			ids := make(map[string]int64, len(found))
			for _, w := range found {
				ids[word.NormalizeName(w.SwedishWord)] = w.ID
			}
			for i := range chunk {
				if chunk[i].WordID == 0 {
					chunk[i].WordID = ids[chunk[i].WordSwedish]
				}
			}
		}

		// Строки без удалённого слова пропускаются: прогресс не должен
		// породить сироту в облаке.
		upload := make([]progress.UserProgress, 0, len(chunk))
		for _, p := range chunk {
			if p.WordID > 0 {
				upload = append(upload, p)
			} else {
				s.log.Warn("Слово отсутствует в облаке, прогресс пропущен",
					"word", p.WordSwedish)
			}
		}
		if len(upload) == 0 {
			continue
		}

		if err := s.remote.UpsertProgress(ctx, upload); err != nil {
			return pushed, fmt.Errorf("ошибка выгрузки прогресса: %w", err)
		}
		pushed += len(upload)
	}

	s.log.Info("Выгрузка завершена", "pushed", pushed)
	return pushed, nil
}

// ForceRefresh стирает локальное зеркало и скачивает всё заново.
// Без confirmed операция не выполняется.
func (s *SyncService) ForceRefresh(ctx context.Context, confirmed bool) (*SyncResult, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	s.log.Warn("Принудительное обновление: локальное зеркало будет очищено")

	if s.cfg.HasUser() {
		if err := s.storage.DeleteAllProgress(s.cfg.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.storage.DeleteAllWords(); err != nil {
		return nil, err
	}

	result := &SyncResult{StartTime: time.Now()}
	if err := s.syncWords(ctx, result); err != nil {
		return nil, err
	}
	if s.cfg.HasUser() {
		if err := s.syncProgress(ctx, result); err != nil {
			return nil, err
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result, nil
}

// SyncMissingStories точечно докачивает мнемонические истории для слов,
// у которых их нет локально. Обновляется только поле story.
func (s *SyncService) SyncMissingStories(ctx context.Context) (int, error) {
	local, err := s.storage.ListWordsMissingStory()
	if err != nil {
		return 0, err
	}
	if len(local) == 0 {
		return 0, nil
	}

	updated := 0
	for start := 0; start < len(local); start += pushChunk {
		end := start + pushChunk
		if end > len(local) {
			end = len(local)
		}

		names := make([]string, 0, end-start)
		for _, w := range local[start:end] {
			names = append(names, w.SwedishWord)
		}

		found, err := s.remote.GetWordsByNames(ctx, names)
		if err != nil {
			return updated, fmt.Errorf("ошибка докачивания историй: %w", err)
		}

		for _, w := range found {
			if w.WordData.Story == "" {
				continue
			}
			if err := s.storage.UpdateWordStory(w.SwedishWord, w.WordData.Story); err != nil {
				return updated, err
			}
			updated++
		}
	}

	s.log.Info("Истории докачаны", "updated", updated)
	return updated, nil
}

// ResolveWord разрешает слово: сперва локально, затем в облаке с
// кэшированием результата.
func (s *SyncService) ResolveWord(ctx context.Context, name string) (*word.Word, error) {
	name = word.NormalizeName(name)

	w, err := s.storage.GetWord(name)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, word.ErrNotFound) {
		return nil, err
	}

	rw, err := s.remote.GetWordByName(ctx, name)
	if err != nil {
		if remote.IsNotFound(err) {
			return nil, word.ErrNotFound
		}
		return nil, err
	}

	if err := s.storage.SaveWord(rw); err != nil {
		return nil, err
	}
	return rw, nil
}

// CaptureWord захватывает встреченное в тексте слово: создаёт локальную
// запись с пометкой is_ft и ставит вставку в очередь. Уже известное слово
// возвращается как есть.
func (s *SyncService) CaptureWord(ctx context.Context, name string) (*word.Word, error) {
	name = word.NormalizeName(name)
	if name == "" {
		return nil, &word.ValidationError{Field: "swedish_word", Reason: "пустое слово"}
	}
	s.activity.Touch()

	if w, err := s.ResolveWord(ctx, name); err == nil {
		return w, nil
	} else if !errors.Is(err, word.ErrNotFound) {
		// Облако недоступно: захватываем локально, очередь доставит.
		s.log.Debug("Слово захвачено офлайн", "word", name, "error", err)
	}

	w := &word.Word{SwedishWord: name, IsFT: true}
	if err := s.storage.SaveWord(w); err != nil {
		return nil, err
	}
	if _, err := s.queue.EnqueueInsertWord(*w); err != nil {
		return nil, err
	}
	return w, nil
}

// RepairConflicts находит и чинит записи прогресса с обоими взведёнными
// флагами. Исправления отправляются в облако через очередь.
func (s *SyncService) RepairConflicts(ctx context.Context) (int, error) {
	if !s.cfg.HasUser() {
		return 0, ErrNoUser
	}

	conflicted, err := s.storage.ListConflictedProgress(s.cfg.UserID)
	if err != nil {
		return 0, err
	}

	repaired := 0
	now := time.Now()
	for _, p := range conflicted {
		fixed, changed := progress.Repair(p, now)
		if !changed {
			continue
		}
		if err := s.storage.SaveProgress(&fixed); err != nil {
			return repaired, err
		}
		if _, err := s.queue.EnqueueUpsertProgress(fixed); err != nil {
			return repaired, err
		}
		repaired++
	}

	if repaired > 0 {
		s.log.Info("Исправлены противоречивые записи прогресса", "repaired", repaired)
	}
	return repaired, nil
}

// ResetProgress сбрасывает прогресс по слову локально и в облаке.
func (s *SyncService) ResetProgress(ctx context.Context, wordSwedish string) error {
	if !s.cfg.HasUser() {
		return ErrNoUser
	}
	wordSwedish = word.NormalizeName(wordSwedish)
	s.activity.Touch()

	p, err := s.storage.GetProgress(s.cfg.UserID, wordSwedish)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteProgress(s.cfg.UserID, wordSwedish); err != nil {
		return err
	}
	if p.WordID > 0 {
		if _, err := s.queue.EnqueueDeleteProgress(s.cfg.UserID, []int64{p.WordID}); err != nil {
			return err
		}
	}
	return nil
}

// StartAutoSync запускает периодическую фоновую синхронизацию. Проход
// пропускается, если пользователь не настроен, простаивает дольше порога
// или другой проход ещё идёт.
func (s *SyncService) StartAutoSync(ctx context.Context) {
	if s.scheduler != nil {
		return
	}

	interval := time.Duration(s.cfg.SyncInterval) * time.Second
	s.log.Info("Запуск автоматической синхронизации", "interval", interval)

	s.scheduler = gocron.NewScheduler(time.UTC)
	_, err := s.scheduler.Every(interval).Do(func() {
		if !s.cfg.HasUser() {
			return
		}
		if !s.activity.IsActive() {
			s.log.Debug("Пользователь неактивен, фоновый проход пропущен")
			return
		}
		if _, err := s.SyncProgress(ctx, true); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				return
			}
			s.log.Warn("Ошибка фоновой синхронизации", "error", err)
		}
	})
	if err != nil {
		s.log.Error("Ошибка планировщика синхронизации", "error", err)
		return
	}
	s.scheduler.StartAsync()
}

// StopAutoSync останавливает фоновую синхронизацию.
func (s *SyncService) StopAutoSync() {
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
}
