// Package logger настраивает slog-логгер в зависимости от окружения.
package logger

import (
	"os"

	"golang.org/x/exp/slog"

	"ordbank/internal/app/client/config"
)

// New возвращает логгер, сконфигурированный под окружение:
// local — текстовый вывод с уровнем Debug, dev — JSON с Debug,
// prod — JSON с Info. Неизвестное окружение трактуется как prod.
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return setupPrettySlog()
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
}

func setupPrettySlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
