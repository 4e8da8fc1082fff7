package runner

import (
	"context"
	"sync/atomic"
	"time"

	"botfleet/internal/config"
	"botfleet/internal/models"
	exchange "botfleet/internal/modules/exchange/service"
	health "botfleet/internal/modules/health/service"
	position "botfleet/internal/modules/position/service"
	signal "botfleet/internal/modules/signal/service"
	"botfleet/internal/notify"
	"botfleet/pkg/logger"
)

// Runner — однопоточный цикл одного бота: сигнал -> вход -> мониторинг закрытия.
// Никогда не выходит сам, кроме отмены ctx; все нефатальные ошибки гасятся бэкоффом.
type Runner struct {
	payload *config.Payload
	agg     *signal.Aggregator
	pm      *position.Manager
	ex      *exchange.Client
	n       notify.Notifier
	state   *health.State

	unclassified atomic.Uint64
}

func New(payload *config.Payload, agg *signal.Aggregator, pm *position.Manager, ex *exchange.Client, n notify.Notifier, state *health.State) *Runner {
	return &Runner{
		payload: payload,
		agg:     agg,
		pm:      pm,
		ex:      ex,
		n:       n,
		state:   state,
	}
}

// UnclassifiedErrors — счётчик неожиданных ошибок цикла (виден в логах при росте).
func (r *Runner) UnclassifiedErrors() uint64 { return r.unclassified.Load() }

func (r *Runner) Start(ctx context.Context) {
	cfg := &r.payload.Bot

	logger.Info("============================================================")
	logger.Info("🚀 Бот %s запущен", r.payload.BotID)
	logger.Info("📊 Пара: %s, стратегия: %s, плечо: %dx", cfg.TradingPair, cfg.Strategy, cfg.Leverage)
	logger.Info("💰 Депозит: $%.2f, TP: %.2f%%, SL: %.2f%%", cfg.Deposit, cfg.TakeProfitPercent, cfg.StopLossPercent)
	logger.Info("📈 Индикаторов: %d", len(cfg.Indicators))
	logger.Info("============================================================")

	// плечо — best-effort: отказ биржи не мешает запуску цикла
	if err := r.ex.SetLeverage(ctx, cfg.TradingPair, cfg.Leverage); err != nil {
		logger.Error("[RUNNER] установка плеча: %v", err)
	} else {
		logger.Info("[RUNNER] плечо %dx для %s установлено", cfg.Leverage, cfg.TradingPair)
	}

	// ws-кэш цены; цикл работает и без него, через REST
	go r.ex.StreamTicker(ctx, cfg.TradingPair)

	r.state.SetReady(true)

	for {
		if ctx.Err() != nil {
			return
		}
		delay := r.cycle(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// cycle выполняет один шаг машины состояний и возвращает паузу до следующего.
func (r *Runner) cycle(ctx context.Context) time.Duration {
	r.state.TouchCycle(time.Now())

	var err error
	if r.pm.State() == position.StateOpen {
		err = r.watchPosition(ctx)
	} else {
		err = r.tryEnter(ctx)
	}
	r.state.SetPositionOpen(r.pm.State() == position.StateOpen)

	kind := Classify(err)
	switch kind {
	case KindNone:
		return pollInterval
	case KindNetwork:
		logger.Error("[RUNNER] 🌐 проблема с сетью: %v — пауза %s", err, transientBackoff)
	case KindExchange:
		logger.Error("[RUNNER] ⚠️ ошибка биржи: %v — пауза %s", err, transientBackoff)
	default:
		n := r.unclassified.Add(1)
		logger.Error("[RUNNER] ❌ неклассифицированная ошибка (#%d): %v", n, err)
	}
	return Backoff(kind)
}

func (r *Runner) watchPosition(ctx context.Context) error {
	logger.Info("[RUNNER] позиция открыта, мониторинг закрытия...")
	closed, reason, err := r.pm.CheckClosed(ctx)
	if err != nil {
		return err
	}
	if closed {
		emoji := "✅"
		if reason == models.CloseStopLoss {
			emoji = "❌"
		}
		r.n.Sendf("🏁 Бот %s: позиция %s закрыта по %s %s",
			r.payload.BotID, r.payload.Bot.TradingPair, reason, emoji)
	}
	return nil
}

func (r *Runner) tryEnter(ctx context.Context) error {
	if !r.agg.Evaluate(ctx, &r.payload.Bot) {
		return nil
	}
	if err := r.pm.Open(ctx); err != nil {
		return err
	}
	if pos := r.pm.Position(); pos.Open {
		r.n.Sendf("🚀 Бот %s: вход %s %s %.3f @ %.2f (TP %.2f / SL %.2f)",
			r.payload.BotID, r.payload.Bot.Strategy, r.payload.Bot.TradingPair,
			pos.Size, pos.EntryPrice, pos.TPPrice, pos.SLPrice)
	}
	return nil
}
