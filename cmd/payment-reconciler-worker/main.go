package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/internal/engine/notifier"
	"github.com/noidbets/duel-bets-engine/internal/engine/reconciler"
	"github.com/noidbets/duel-bets-engine/internal/shared/config"
	"github.com/noidbets/duel-bets-engine/internal/shared/db"
	skafka "github.com/noidbets/duel-bets-engine/internal/shared/kafka"
	"github.com/noidbets/duel-bets-engine/internal/shared/logger"
	"github.com/noidbets/duel-bets-engine/internal/shared/metrics"
)

// Métricas do reconciliador de pagamentos
var (
	checkedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciler_checked_total",
		Help: "Consultas de status feitas ao gateway",
	})
	creditedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciler_credited_total",
		Help: "Depósitos confirmados e creditados em GP",
	})
	expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_reconciler_expired_total",
		Help: "Depósitos pending expirados por idade",
	})
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciler_errors_total",
		Help: "Erros por fase do ciclo",
	}, []string{"phase"})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com Postgres (pagamentos cripto e ledger)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	store := ledger.NewPostgres(pg, log)

	// Notificações de depósito confirmado via Kafka
	userWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicUserNotifications)
	defer userWriter.Close()
	roundWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer roundWriter.Close()
	notif := notifier.New(log, userWriter, roundWriter)

	rec := &reconciler.Reconciler{
		Log:      log,
		Store:    store,
		Gateway:  gateway.New(cfg.PlisioBaseURL, cfg.PlisioAPIKey),
		Notifier: notif,

		Interval: cfg.ReconcileInterval,
		Lookback: cfg.ReconcileLookback,
		ItemGap:  cfg.ReconcileItemGap,

		OnChecked:  func() { checkedTotal.Inc() },
		OnCredited: func() { creditedTotal.Inc() },
		OnExpired:  func(n int64) { expiredTotal.Add(float64(n)) },
		OnError:    func(phase string) { errorsTotal.WithLabelValues(phase).Inc() },
	}

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rec.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal("reconciler", zap.Error(err))
	}
	log.Info("payment reconciler stopped")
}
