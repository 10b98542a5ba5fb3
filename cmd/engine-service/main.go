package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/deposit"
	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	ehttp "github.com/noidbets/duel-bets-engine/internal/engine/http"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/internal/engine/notifier"
	"github.com/noidbets/duel-bets-engine/internal/engine/round"
	"github.com/noidbets/duel-bets-engine/internal/engine/withdraw"
	"github.com/noidbets/duel-bets-engine/internal/shared/cache"
	"github.com/noidbets/duel-bets-engine/internal/shared/config"
	"github.com/noidbets/duel-bets-engine/internal/shared/db"
	skafka "github.com/noidbets/duel-bets-engine/internal/shared/kafka"
	"github.com/noidbets/duel-bets-engine/internal/shared/logger"
	"github.com/noidbets/duel-bets-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("engine-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", "engine-service"), zap.String("env", cfg.Env))

	ctx := context.Background()

	// Conexão com Postgres (ledger, histórico, pagamentos)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	store := ledger.NewPostgres(pg, log)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	// Redis: fila de apostas e snapshot do round
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Writers Kafka para notificações e eventos de liquidação
	userWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicUserNotifications)
	defer userWriter.Close()
	roundWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer roundWriter.Close()
	notif := notifier.New(log, userWriter, roundWriter)

	// Máquina de estados do round
	rounds := round.NewManager(round.Config{
		WinMultiplier: cfg.WinMultiplier,
		RakebackRate:  cfg.RakebackRate,
		BetWindow:     cfg.BetWindow,
	}, log, store, round.NewRedisStore(rdb))
	if err := rounds.Restore(ctx); err != nil {
		log.Warn("round restore", zap.Error(err))
	}

	// Gateway de pagamento e fluxos cripto
	plisio := gateway.New(cfg.PlisioBaseURL, cfg.PlisioAPIKey)
	deposits := &deposit.Service{
		Log: log,
		Cfg: deposit.Config{
			MinUSD:          cfg.MinDepositUSD,
			MaxUSD:          cfg.MaxDepositUSD,
			GPPerUSDDeposit: cfg.GPPerUSDDeposit(),
		},
		Ledger:  store,
		Gateway: plisio,
	}
	withdrawals := &withdraw.Orchestrator{
		Log: log,
		Cfg: withdraw.Config{
			MinUSD:             cfg.MinWithdrawalUSD,
			MaxUSD:             cfg.MaxWithdrawalUSD,
			GPPerUSDWithdrawal: cfg.GPPerUSDWithdrawal(),
		},
		Ledger:   store,
		Gateway:  plisio,
		Notifier: notif,
	}

	// Countdown: fecha a janela de apostas quando o deadline passa
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for now := range ticker.C {
			rounds.CloseIfDue(ctx, now)
		}
	}()

	api := ehttp.NewServer(log, rounds, store, deposits, withdrawals, notif)

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8084
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
