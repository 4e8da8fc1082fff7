package config

import (
	"fmt"
	"os"

	"botfleet/internal/models"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	botIDEnv     = "BOT_ID"
	apiKeyEnv    = "API_KEY"
	apiSecretEnv = "API_SECRET"
	configEnv    = "CONFIG"
)

// Payload — иммутабельный запуск-пакет бота: оркестратор кладёт его в окружение
// контейнера, процесс читает ровно один раз. Секреты живут только в памяти процесса.
type Payload struct {
	BotID     string
	APIKey    string
	APISecret string
	Bot       models.BotConfig
}

// Load читает и валидирует окружение. Любая ошибка здесь фатальна для процесса:
// битый конфиг бот не переживает, выход виден оркестратору.
func Load() (*Payload, error) {
	_ = godotenv.Load()

	p := &Payload{
		BotID:     os.Getenv(botIDEnv),
		APIKey:    os.Getenv(apiKeyEnv),
		APISecret: os.Getenv(apiSecretEnv),
	}
	if p.BotID == "" {
		return nil, fmt.Errorf("%s is not set", botIDEnv)
	}
	if p.APIKey == "" || p.APISecret == "" {
		return nil, fmt.Errorf("%s/%s are not set", apiKeyEnv, apiSecretEnv)
	}

	raw := os.Getenv(configEnv)
	if raw == "" {
		return nil, fmt.Errorf("%s is not set", configEnv)
	}
	if err := sonic.UnmarshalString(raw, &p.Bot); err != nil {
		return nil, errors.Wrap(err, "parse CONFIG json")
	}
	if err := p.Bot.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid bot config")
	}
	return p, nil
}

// Env сериализует payload обратно в плоские переменные окружения контейнера.
func (p *Payload) Env() ([]string, error) {
	cfgJSON, err := sonic.MarshalString(&p.Bot)
	if err != nil {
		return nil, errors.Wrap(err, "marshal bot config")
	}
	return []string{
		botIDEnv + "=" + p.BotID,
		apiKeyEnv + "=" + p.APIKey,
		apiSecretEnv + "=" + p.APISecret,
		configEnv + "=" + cfgJSON,
		"LOG_LEVEL=INFO",
	}, nil
}
