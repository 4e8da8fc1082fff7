package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bytedance/sonic"

	botcfg "botfleet/internal/config"
	"botfleet/internal/models"
	fleetcfg "botfleet/internal/modules/config"
	orchestrator "botfleet/internal/modules/orchestrator/service"
	"botfleet/internal/notify"
	"botfleet/internal/secrets"
	"botfleet/pkg/logger"
	"botfleet/pkg/tracing"
)

const usage = `usage: fleet <command> [flags]

commands:
  start   -bot <id> -config <file.json> -key <enc> -secret <enc>
  stop    -instance <id>
  logs    -instance <id> [-tail N]
  status  -instance <id>
  stats   -instance <id>
`

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	logger.SetServiceName("fleet")
	tracing.SetServiceName("fleet")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := fleetcfg.NewConfig()
	if err != nil {
		logger.Fatal("конфигурация: %v", err)
	}

	_, closeTracer, err := tracing.InitTracer(tracing.Config{Host: cfg.Jaeger.Host, Port: cfg.Jaeger.Port})
	if err != nil {
		logger.Warn("jaeger недоступен: %v", err)
	} else {
		defer closeTracer()
	}

	mgr, err := orchestrator.NewManager(cfg)
	if err != nil {
		logger.Fatal("оркестратор: %v", err)
	}

	// Notifier: если TELEGRAM_* нет — используем stdout
	var ntf notify.Notifier = notify.NewStdout()
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID); err == nil {
			ntf = tg
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "start":
		cmdStart(ctx, cfg, mgr, ntf, os.Args[2:])
	case "stop":
		id := instanceFlag("stop", os.Args[2:], nil)
		if !mgr.Stop(ctx, id) {
			logger.Fatal("stop %s: не удалось", id)
		}
		ntf.Sendf("🛑 инстанс %s остановлен", id)
		fmt.Println("stopped")
	case "logs":
		var tail int
		id := instanceFlag("logs", os.Args[2:], &tail)
		out, ok := mgr.Logs(ctx, id, tail)
		if !ok {
			logger.Fatal("контейнер %s не найден", id)
		}
		fmt.Print(out)
	case "status":
		id := instanceFlag("status", os.Args[2:], nil)
		if mgr.IsRunning(ctx, id) {
			fmt.Println(models.InstanceRunning)
		} else {
			fmt.Println(models.InstanceStopped)
		}
	case "stats":
		id := instanceFlag("stats", os.Args[2:], nil)
		st := mgr.Stats(ctx, id)
		if st == nil {
			fmt.Println("нет данных")
			return
		}
		out, _ := sonic.MarshalIndent(st, "", "  ")
		fmt.Println(string(out))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func cmdStart(ctx context.Context, cfg *fleetcfg.Config, mgr *orchestrator.Manager, ntf notify.Notifier, args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	botID := fs.String("bot", "", "идентификатор бота")
	configPath := fs.String("config", "", "json-файл BotConfig")
	encKey := fs.String("key", "", "зашифрованный API key")
	encSecret := fs.String("secret", "", "зашифрованный API secret")
	_ = fs.Parse(args)

	if *botID == "" || *configPath == "" || *encKey == "" || *encSecret == "" {
		fs.Usage()
		os.Exit(2)
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Fatal("чтение конфига: %v", err)
	}
	var bot models.BotConfig
	if err := sonic.Unmarshal(raw, &bot); err != nil {
		logger.Fatal("разбор конфига: %v", err)
	}
	if err := bot.Validate(); err != nil {
		logger.Fatal("конфиг бота: %v", err)
	}

	box, err := secrets.NewBox(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("ключ шифрования: %v", err)
	}
	// ошибки расшифровки не содержат и не логируют plaintext
	apiKey, err := box.Decrypt(*encKey)
	if err != nil {
		logger.Fatal("api key: %v", err)
	}
	apiSecret, err := box.Decrypt(*encSecret)
	if err != nil {
		logger.Fatal("api secret: %v", err)
	}

	payload := &botcfg.Payload{
		BotID:     *botID,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Bot:       bot,
	}
	instanceID, err := mgr.Start(ctx, *botID, payload)
	if err != nil {
		logger.Fatal("start: %v", err)
	}
	ntf.Sendf("🚀 бот %s запущен, контейнер %s", *botID, instanceID)
	fmt.Println(instanceID)
}

func instanceFlag(name string, args []string, tail *int) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.String("instance", "", "идентификатор контейнера")
	if tail != nil {
		fs.IntVar(tail, "tail", 50, "сколько последних строк")
	}
	_ = fs.Parse(args)
	if *id == "" {
		fs.Usage()
		os.Exit(2)
	}
	return *id
}
