package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Управление LLM API-ключом",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Сохранить API-ключ в зашифрованном виде",
	Long: `Ключ запечатывается парольной фразой и хранится только локально.
Копия ключа также отправляется в облачное хранилище пользователя,
чтобы другие устройства могли его получить.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		apiKey, err := readPassphrase("API-ключ: ")
		if err != nil {
			return err
		}
		if apiKey == "" {
			return fmt.Errorf("ключ не может быть пустым")
		}

		passphrase, err := readPassphrase("Парольная фраза: ")
		if err != nil {
			return err
		}
		confirmPhrase, err := readPassphrase("Повторите фразу: ")
		if err != nil {
			return err
		}
		if passphrase != confirmPhrase {
			return fmt.Errorf("парольные фразы не совпадают")
		}

		if err := app.Keys().Save(apiKey, passphrase); err != nil {
			return err
		}

		if cfg.HasUser() {
			if err := app.Remote().UpsertAPIKey(cmd.Context(), cfg.UserID, apiKey); err != nil {
				color.Yellow("⚠️  Ключ сохранён локально, но не отправлен в облако: %v", err)
				return nil
			}
		}

		color.Green("✅ API-ключ сохранён")
		return nil
	},
}

var apikeyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Удалить локальный API-ключ",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.Close()

		if err := app.Keys().Delete(); err != nil {
			return err
		}
		color.Green("✅ Локальный API-ключ удалён")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyDeleteCmd)
	rootCmd.AddCommand(apikeyCmd)
}
