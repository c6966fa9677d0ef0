package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"ordbank/internal/app/client"
	"ordbank/internal/app/client/config"
	"ordbank/internal/utils/logger"
)

var (
	cfg  *config.Config
	log  *slog.Logger
	app  *client.App
	user string
)

var rootCmd = &cobra.Command{
	Use:   "ordbank",
	Short: "Ordbank - клиент словаря шведского языка",
	Long: `Ordbank — клиент для изучения шведской лексики: локальное зеркало
словаря, прогресс изучения с интервальным повторением и фоновая
синхронизация с облачным хранилищем.

Все изменения прогресса сначала сохраняются локально и доставляются
в облако через устойчивую очередь.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	// Пользователь из флага перекрывает окружение.
	if user != "" {
		cfg.UserID = user
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = client.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "идентификатор пользователя")
}
