package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const configFilePathENV = "CONFIG_FILE"

// Config — настройки контроллера флота. Дефолты -> yaml-файл -> env,
// каждый следующий слой перекрывает предыдущий.
type Config struct {
	// Образ и сеть контейнеров ботов
	BotImage   string `yaml:"bot_image"`
	BotNetwork string `yaml:"bot_network"`

	// Ключ расшифровки API-ключей (base64, 32 байта)
	EncryptionKey string `yaml:"encryption_key"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Telegram (опционально)
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{
		BotImage:   "bot-runner:latest",
		BotNetwork: "trading_network",
	}
	cfg.Jaeger.Host = "localhost"
	cfg.Jaeger.Port = 6831

	// файла может не быть — живём на env и дефолтах
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "fleet.yaml"
	}
	if file, err := os.Open("configs/" + configFileName); err == nil {
		decoder := yaml.NewDecoder(file)
		err = decoder.Decode(cfg)
		_ = file.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "decode config file %s", configFileName)
		}
	}

	viper.AutomaticEnv()
	if v := viper.GetString("BOT_IMAGE"); v != "" {
		cfg.BotImage = v
	}
	if v := viper.GetString("BOT_NETWORK"); v != "" {
		cfg.BotNetwork = v
	}
	if v := viper.GetString("ENCRYPTION_KEY"); v != "" {
		cfg.EncryptionKey = v
	}
	if v := viper.GetString("JAEGER_HOST"); v != "" {
		cfg.Jaeger.Host = v
	}
	if v := viper.GetInt("JAEGER_PORT"); v != 0 {
		cfg.Jaeger.Port = v
	}
	if v := viper.GetString("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := viper.GetInt64("TELEGRAM_CHAT_ID"); v != 0 {
		cfg.Telegram.ChatID = v
	}

	return cfg, nil
}
