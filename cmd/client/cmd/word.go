package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ordbank/internal/domain/word"
	"ordbank/internal/generator"
)

var populateLimit int

var wordCmd = &cobra.Command{
	Use:   "word",
	Short: "Работа со словарём",
}

var wordGetCmd = &cobra.Command{
	Use:   "get [слово]",
	Short: "Показать карточку слова",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		w, err := app.Sync().ResolveWord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printWord(w)
		return nil
	},
}

var wordCaptureCmd = &cobra.Command{
	Use:   "capture [слово]",
	Short: "Захватить встреченное слово",
	Long: `Захват слова, встреченного в тексте. Если слово неизвестно ни
локально, ни в облаке, создаётся новая запись с пометкой is_ft и
вставка доставляется в облако через очередь.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		w, err := app.Sync().CaptureWord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if w.ID > 0 {
			color.Green("✅ Слово уже известно: %s (id=%d)", w.SwedishWord, w.ID)
		} else {
			color.Green("✅ Слово захвачено: %s (ожидает доставки)", w.SwedishWord)
		}
		return nil
	},
}

// loadGenerator расшифровывает API-ключ и собирает генератор.
func loadGenerator() (generator.Generator, error) {
	if !app.Keys().Exists() {
		return nil, fmt.Errorf("API-ключ не настроен. Выполните: ordbank apikey set")
	}

	passphrase, err := readPassphrase("Парольная фраза: ")
	if err != nil {
		return nil, err
	}
	apiKey, err := app.Keys().Load(passphrase)
	if err != nil {
		return nil, err
	}
	return generator.NewAnthropicGenerator(apiKey, "", log), nil
}

var wordPopulateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Наполнить пустые карточки через LLM",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		gen, err := loadGenerator()
		if err != nil {
			return err
		}
		populated, err := generator.PopulateBatch(cmd.Context(), app.Storage(), gen, populateLimit, log)
		if err != nil {
			return err
		}
		color.Green("✅ Наполнено карточек: %d", populated)
		return nil
	},
}

var wordQuizCmd = &cobra.Command{
	Use:   "quiz [слово]",
	Short: "Квиз по слову (сквозь локальный кэш)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		w, err := app.Sync().ResolveWord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		gen, err := loadGenerator()
		if err != nil {
			return err
		}

		raw, err := generator.QuizFor(cmd.Context(), app.Storage(), gen, *w, time.Now())
		if err != nil {
			return err
		}

		var quiz generator.Quiz
		if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
			return fmt.Errorf("ошибка чтения квиза из кэша: %w", err)
		}

		fmt.Println(quiz.Question)
		for i, opt := range quiz.Options {
			fmt.Printf("  %d) %s\n", i+1, opt)
		}
		color.Green("Ответ: %s", quiz.Answer)
		return nil
	},
}

var wordUsageCmd = &cobra.Command{
	Use:   "usage [слово]",
	Short: "Примеры употребления слова (сквозь локальный кэш)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		w, err := app.Sync().ResolveWord(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		gen, err := loadGenerator()
		if err != nil {
			return err
		}

		raw, err := generator.UsageFor(cmd.Context(), app.Storage(), gen, *w, time.Now())
		if err != nil {
			return err
		}

		var usage generator.Usage
		if err := json.Unmarshal([]byte(raw), &usage); err != nil {
			return fmt.Errorf("ошибка чтения употреблений из кэша: %w", err)
		}

		for _, ex := range usage.Examples {
			fmt.Println(ex.Swedish)
			if ex.English != "" {
				fmt.Printf("  %s\n", ex.English)
			}
		}
		return nil
	},
}

func printWord(w *word.Word) {
	title := color.New(color.Bold)
	title.Printf("%s", w.SwedishWord)
	if w.ID > 0 {
		fmt.Printf("  (id=%d)", w.ID)
	}
	if w.IsFT {
		fmt.Printf("  [захвачено из текста]")
	}
	fmt.Println()

	if w.KellyLevel != nil {
		fmt.Printf("Kelly:     %d\n", *w.KellyLevel)
	}
	if w.FrequencyRank != nil {
		fmt.Printf("Частота:   %d\n", *w.FrequencyRank)
	}
	if w.WordData.CEFR != "" {
		fmt.Printf("CEFR:      %s\n", w.WordData.CEFR)
	}
	for _, m := range w.WordData.Meanings {
		fmt.Printf("  • %s", m.Translation)
		if m.PartOfSpeech != "" {
			fmt.Printf(" (%s)", m.PartOfSpeech)
		}
		fmt.Println()
		if m.Explanation != "" {
			fmt.Printf("    %s\n", m.Explanation)
		}
	}
	if len(w.WordData.Examples) > 0 {
		fmt.Println("Примеры:")
		for _, e := range w.WordData.Examples {
			fmt.Printf("  %s\n", e)
		}
	}
	if len(w.WordData.Synonyms) > 0 {
		fmt.Printf("Синонимы:  %s\n", strings.Join(w.WordData.Synonyms, ", "))
	}
	if w.WordData.Story != "" {
		fmt.Printf("История:   %s\n", w.WordData.Story)
	}
}

func readPassphrase(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("ошибка чтения парольной фразы: %w", err)
	}
	return string(raw), nil
}

func init() {
	wordPopulateCmd.Flags().IntVar(&populateLimit, "limit", 25, "максимум карточек за запуск")

	wordCmd.AddCommand(wordGetCmd)
	wordCmd.AddCommand(wordCaptureCmd)
	wordCmd.AddCommand(wordPopulateCmd)
	wordCmd.AddCommand(wordQuizCmd)
	wordCmd.AddCommand(wordUsageCmd)
	rootCmd.AddCommand(wordCmd)
}
