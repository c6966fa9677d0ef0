package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ordbank/internal/app/client/config"
	"ordbank/internal/app/client/crypto"
	"ordbank/internal/remote"
)

// App связывает компоненты клиента: локальное зеркало, удалённое
// хранилище, очередь и оркестратор синхронизации.
type App struct {
	config   *config.Config
	log      *slog.Logger
	notifier *Notifier
	activity *ActivityTracker
	storage  *SQLiteStorage
	remote   remote.Store
	queue    *SyncQueue
	sync     *SyncService
	keys     *crypto.KeyStore
	pool     *pgxpool.Pool

	wg     gosync.WaitGroup
	cancel context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url не задан")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к удалённой базе: %w", err)
	}

	rstore := remote.NewPostgresStore(pool, log,
		time.Duration(cfg.RemoteTimeout)*time.Second)

	notifier := NewNotifier()
	activity := NewActivityTracker(time.Duration(cfg.IdleThreshold) * time.Second)

	storage, err := NewSQLiteStorage(cfg.DataPath, notifier, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	keys, err := crypto.NewKeyStore(cfg.APIKeyPath)
	if err != nil {
		pool.Close()
		_ = storage.Close()
		return nil, fmt.Errorf("ошибка инициализации хранилища ключей: %w", err)
	}

	queue := NewSyncQueue(storage, rstore, notifier, log)
	syncService := NewSyncService(storage, rstore, queue, notifier, activity, cfg, log)

	return &App{
		config:   cfg,
		log:      log,
		notifier: notifier,
		activity: activity,
		storage:  storage,
		remote:   rstore,
		queue:    queue,
		sync:     syncService,
		keys:     keys,
		pool:     pool,
	}, nil
}

// Доступ к компонентам для команд CLI.

func (a *App) Config() *config.Config     { return a.config }
func (a *App) Storage() *SQLiteStorage    { return a.storage }
func (a *App) Remote() remote.Store       { return a.remote }
func (a *App) Queue() *SyncQueue          { return a.queue }
func (a *App) Sync() *SyncService         { return a.sync }
func (a *App) Keys() *crypto.KeyStore     { return a.keys }
func (a *App) Notifier() *Notifier        { return a.notifier }
func (a *App) Activity() *ActivityTracker { return a.activity }

// Run запускает фоновую синхронизацию и блокируется до сигнала
// завершения.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.handleSignals()

	a.sync.StartAutoSync(ctx)

	a.log.Info("Клиент запущен", "env", a.config.Env, "user", a.config.UserID)

	<-ctx.Done()
	a.sync.StopAutoSync()
	a.wg.Wait()
	return nil
}

func (a *App) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.log.Info("Получен сигнал завершения", "signal", sig)
	if a.cancel != nil {
		a.cancel()
	}
}

// Close дожидается фоновых доставок очереди и освобождает ресурсы
// клиента.
func (a *App) Close() error {
	a.sync.StopAutoSync()
	a.queue.Wait()
	if a.pool != nil {
		a.pool.Close()
	}
	return a.storage.Close()
}
