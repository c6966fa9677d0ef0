package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ordbank/internal/domain/progress"
)

var listDue bool

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Прогресс изучения",
}

// parseFlagArg разбирает необязательное значение флага из аргумента
// команды ("1"/"true"/"0"/"false" и т.п.); отсутствующий аргумент — true.
func parseFlagArg(args []string) (*bool, error) {
	v := true
	if len(args) < 2 {
		return &v, nil
	}
	parsed, ok := progress.CoerceFlag(args[1])
	if !ok {
		return nil, fmt.Errorf("непонятное значение флага: %q", args[1])
	}
	if parsed == nil {
		return &v, nil
	}
	return parsed, nil
}

var progressLearnCmd = &cobra.Command{
	Use:   "learn [слово] [значение]",
	Short: "Отметить слово выученным (или снять отметку)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		learned, err := parseFlagArg(args)
		if err != nil {
			return err
		}
		p, err := app.Sync().UpsertProgress(cmd.Context(), progress.Candidate{
			WordSwedish: args[0],
			IsLearned:   learned,
		})
		if err != nil {
			return err
		}
		if !*learned {
			color.Green("✅ Отметка снята: %s", p.WordSwedish)
			return nil
		}
		when := ""
		if p.LearnedDate != nil {
			when = " (" + p.LearnedDate.Format("2006-01-02") + ")"
		}
		color.Green("✅ Выучено: %s%s", p.WordSwedish, when)
		return nil
	},
}

var progressReserveCmd = &cobra.Command{
	Use:   "reserve [слово] [значение]",
	Short: "Отложить слово на потом (или снять отметку)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		reserved, err := parseFlagArg(args)
		if err != nil {
			return err
		}
		p, err := app.Sync().UpsertProgress(cmd.Context(), progress.Candidate{
			WordSwedish: args[0],
			IsReserve:   reserved,
		})
		if err != nil {
			return err
		}
		if !*reserved {
			color.Green("✅ Отметка снята: %s", p.WordSwedish)
			return nil
		}
		color.Green("✅ Отложено: %s", p.WordSwedish)
		return nil
	},
}

var progressReviewCmd = &cobra.Command{
	Use:   "review [слово] [hard|good|easy|reset]",
	Short: "Ответить на повторении",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		p, err := app.Sync().ReviewWord(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		next := "—"
		if p.SRSNextReview != nil {
			next = p.SRSNextReview.Format("2006-01-02")
		}
		color.Green("✅ %s: интервал %d дн., лёгкость %.2f, следующее повторение %s",
			p.WordSwedish, p.SRSInterval, p.SRSEase, next)
		return nil
	},
}

var progressResetCmd = &cobra.Command{
	Use:   "reset [слово]",
	Short: "Сбросить прогресс по слову",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		if err := app.Sync().ResetProgress(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.Green("✅ Прогресс сброшен: %s", args[0])
		return nil
	},
}

var progressRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Починить противоречивые записи прогресса",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		repaired, err := app.Sync().RepairConflicts(cmd.Context())
		if err != nil {
			return err
		}
		if repaired == 0 {
			fmt.Println("Противоречивых записей не найдено")
		} else {
			color.Green("✅ Исправлено записей: %d", repaired)
		}
		return nil
	},
}

var progressListCmd = &cobra.Command{
	Use:   "list",
	Short: "Показать прогресс",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		var rows []progress.UserProgress
		var err error
		if listDue {
			rows, err = app.Storage().ListDueProgress(cfg.UserID, time.Now())
		} else {
			rows, err = app.Storage().ListProgress(cfg.UserID)
		}
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("Записей нет")
			return nil
		}

		for _, p := range rows {
			status := " "
			switch {
			case p.Learned():
				status = "✓"
			case p.Reserved():
				status = "⏸"
			}
			next := ""
			if p.SRSNextReview != nil {
				next = p.SRSNextReview.Format("2006-01-02")
			}
			fmt.Printf("%s %-25s интервал %3d  %s\n", status, p.WordSwedish, p.SRSInterval, next)
		}
		return nil
	},
}

func init() {
	progressListCmd.Flags().BoolVar(&listDue, "due", false, "только слова к повторению")

	progressCmd.AddCommand(progressLearnCmd)
	progressCmd.AddCommand(progressReserveCmd)
	progressCmd.AddCommand(progressReviewCmd)
	progressCmd.AddCommand(progressResetCmd)
	progressCmd.AddCommand(progressRepairCmd)
	progressCmd.AddCommand(progressListCmd)
	rootCmd.AddCommand(progressCmd)
}
