// Package migration управляет версионированной схемой локального зеркала.
// Эволюция схемы строго аддитивна: уже закэшированные строки остаются
// читаемыми после каждого шага.
package migration

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Регистрация sqlite3-драйвера для migrate.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator — интерфейс для самой библиотеки migrate.Migrate.
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine — фабрика для создания мигратора (чтобы не лезть в ФС и БД в тестах).
type MigrationEngine func(databaseURL string) (Migrator, error)

type Migration struct {
	databaseURL string
	engine      MigrationEngine
}

// New создаёт мигратор для локальной базы по пути sqlite-файла.
func New(dbPath string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		databaseURL: "sqlite3://" + dbPath,
		engine:      engine,
	}
}

// DefaultEngine — реальная реализация поверх встроенных миграций.
func DefaultEngine(databaseURL string) (Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

func (mg *Migration) Up() (err error) {
	m, err := mg.engine(mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w; migration up error", err)
	}
	return nil
}
