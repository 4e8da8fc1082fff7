package main

import (
	"log"
	"os"
	"strconv"

	"go.uber.org/fx"

	"botfleet/internal/config"
	"botfleet/internal/models"
	"botfleet/internal/modules/exchange"
	exchangesvc "botfleet/internal/modules/exchange/service"
	"botfleet/internal/modules/health"
	"botfleet/internal/modules/indicator"
	"botfleet/internal/modules/position"
	"botfleet/internal/modules/signal"
	"botfleet/internal/notify"
	"botfleet/internal/runner"
	"botfleet/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	logger.SetServiceName("bot-runner")

	// payload читается ровно один раз; битый конфиг — немедленный выход,
	// оркестратор увидит это по падению контейнера
	payload, err := config.Load()
	if err != nil {
		logger.Fatal("❌ инициализация бота: %v", err)
	}

	app := fx.New(
		fx.Supply(payload),
		fx.Provide(
			func(p *config.Payload) *models.BotConfig { return &p.Bot },
			// Notifier: если TELEGRAM_* нет — используем stdout
			func() notify.Notifier {
				token := os.Getenv("TELEGRAM_BOT_TOKEN")
				chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
				if token != "" && chatID != 0 {
					if tg, err := notify.NewTelegram(token, chatID); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
		),
		fx.Invoke(func(c *exchangesvc.Client, p *config.Payload) {
			c.SetCreds(p.APIKey, p.APISecret)
		}),
		exchange.Module(),
		indicator.Module(),
		signal.Module(),
		position.Module(),
		health.Module(),
		runner.Module(),
	)
	app.Run()
}
