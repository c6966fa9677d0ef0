package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Очередь синхронизации",
}

var queueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Показать состояние очереди",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		counts, err := app.Queue().Counts()
		if err != nil {
			return err
		}
		fmt.Printf("Ожидают:     %d\n", counts.Pending)
		fmt.Printf("Выполняются: %d\n", counts.Processing)
		fmt.Printf("С ошибкой:   %d\n", counts.Failed)

		if counts.Failed > 0 {
			failed, err := app.Queue().ListFailed()
			if err != nil {
				return err
			}
			fmt.Println()
			color.Yellow("Элементы с ошибкой:")
			for _, item := range failed {
				fmt.Printf("  %s  %-16s попыток %d  %s\n",
					item.EnqueuedAt.Format("2006-01-02 15:04"),
					item.Op, item.Attempts, item.LastError)
			}
		}
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Вернуть failed-элементы в очередь",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		n, err := app.Queue().RetryFailed()
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println("Элементов с ошибкой нет")
			return nil
		}
		if err := app.Queue().Flush(cmd.Context()); err != nil {
			return err
		}
		color.Green("✅ Возвращено в очередь: %d", n)
		return nil
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Удалить failed-элементы",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		n, err := app.Queue().ClearFailed()
		if err != nil {
			return err
		}
		color.Green("✅ Удалено элементов: %d", n)
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueStatusCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queueClearCmd)
	rootCmd.AddCommand(queueCmd)
}
