package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ordbank/internal/app/client"
)

var (
	progressOnly bool
	pushLocal    bool
	forceRefresh bool
	syncStories  bool
	assumeYes    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с облаком",
	Long: `Синхронизация локального зеркала с облачным хранилищем.

По умолчанию выполняется полный проход: словарь, прогресс пользователя
и отложенные мутации из очереди.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()
		ctx := cmd.Context()

		switch {
		case forceRefresh:
			if !assumeYes && !confirm("Локальное зеркало будет стёрто и скачано заново. Продолжить?") {
				color.Yellow("Отменено")
				return nil
			}
			result, err := app.Sync().ForceRefresh(ctx, true)
			if err != nil {
				return err
			}
			printSyncResult(result)
			return nil

		case pushLocal:
			pushed, err := app.Sync().PushLocalToCloud(ctx)
			if err != nil {
				return err
			}
			color.Green("✅ Выгружено записей прогресса: %d", pushed)
			return nil

		case syncStories:
			updated, err := app.Sync().SyncMissingStories(ctx)
			if err != nil {
				return err
			}
			color.Green("✅ Докачано историй: %d", updated)
			return nil

		case progressOnly:
			result, err := app.Sync().SyncProgress(ctx, false)
			if err != nil {
				return err
			}
			printSyncResult(result)
			return nil

		default:
			result, err := app.Sync().SyncAll(ctx)
			if err != nil {
				return err
			}
			printSyncResult(result)
			return nil
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить фоновую синхронизацию",
	Long: `Фоновый режим: клиент периодически синхронизирует прогресс,
пока пользователь активен, и выполняет очередь отложенных мутаций.
Завершается по SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()
		return app.Run()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "История загрузок списков слов",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		records, err := app.Remote().ListUploadHistory(cmd.Context(), 20)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("История загрузок пуста")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %-30s %-20s %6d строк  %s\n",
				r.UploadedAt.Format("2006-01-02 15:04"),
				r.FileName, r.ListName, r.RowCount, r.UploadedBy)
		}
		return nil
	},
}

func printSyncResult(result *client.SyncResult) {
	color.Green("✅ Синхронизация завершена")
	fmt.Printf("Слов:      %d\n", result.WordsSynced)
	fmt.Printf("Прогресса: %d\n", result.ProgressSynced)
	fmt.Printf("Страниц:   %d\n", result.Pages)
	fmt.Printf("Время:     %v\n", result.Duration.Round(time.Millisecond))
	if !result.QueueFlushed {
		color.Yellow("⚠️  Очередь не была выполнена полностью")
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	syncCmd.Flags().BoolVar(&progressOnly, "progress-only", false, "синхронизировать только прогресс")
	syncCmd.Flags().BoolVar(&pushLocal, "push", false, "выгрузить локальный прогресс в облако")
	syncCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "стереть зеркало и скачать заново")
	syncCmd.Flags().BoolVar(&syncStories, "stories", false, "докачать недостающие истории")
	syncCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "не спрашивать подтверждения")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
}
