package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultLogLevel   = "info"
	defaultEnv        = EnvLocal
	defaultAPIKeyPath = ".apikey"
	defaultConfigDir  = ".ordbank"
)

type Config struct {
	Env           string `mapstructure:"app_env"`
	DatabaseURL   string `mapstructure:"database_url"`
	UserID        string `mapstructure:"user_id"`
	LogLevel      string `mapstructure:"log_level"`
	APIKeyPath    string `mapstructure:"api_key_path"`
	ConfigDir     string `mapstructure:"config_dir"`
	DataPath      string `mapstructure:"data_path"`
	SyncInterval  int    `mapstructure:"sync_interval_seconds"`
	IdleThreshold int    `mapstructure:"idle_threshold_seconds"`
	RemoteTimeout int    `mapstructure:"remote_timeout_seconds"`
	PageSize      int    `mapstructure:"page_size"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Пробуем найти .env в родительской директории
		envPath = "../.env"
	}

	// Загружаем .env файл если существует
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	// Устанавливаем значения по умолчанию
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("API_KEY_PATH", defaultAPIKeyPath)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 60)
	viper.SetDefault("IDLE_THRESHOLD_SECONDS", 300)
	viper.SetDefault("REMOTE_TIMEOUT_SECONDS", 15)
	viper.SetDefault("PAGE_SIZE", 1000)

	// Получаем домашнюю директорию пользователя
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	// Вычисляем пути для хранения данных
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	// Создаем директории если их нет
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	apiKeyPath := viper.GetString("API_KEY_PATH")
	if apiKeyPath == defaultAPIKeyPath {
		apiKeyPath = filepath.Join(configDir, apiKeyPath)
	}

	dataPath := filepath.Join(configDir, "ordbank.db")

	config := &Config{
		Env:           viper.GetString("APP_ENV"),
		DatabaseURL:   viper.GetString("DATABASE_URL"),
		UserID:        viper.GetString("USER_ID"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
		APIKeyPath:    apiKeyPath,
		ConfigDir:     configDir,
		DataPath:      dataPath,
		SyncInterval:  viper.GetInt("SYNC_INTERVAL_SECONDS"),
		IdleThreshold: viper.GetInt("IDLE_THRESHOLD_SECONDS"),
		RemoteTimeout: viper.GetInt("REMOTE_TIMEOUT_SECONDS"),
		PageSize:      viper.GetInt("PAGE_SIZE"),
	}

	// Валидация конфигурации
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds должен быть положительным")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size должен быть положительным")
	}
	return nil
}

// HasUser сообщает, настроен ли пользователь для синхронизации.
func (c *Config) HasUser() bool {
	return c.UserID != ""
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
