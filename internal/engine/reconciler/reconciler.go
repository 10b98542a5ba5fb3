// Package reconciler converge o status interno dos depósitos cripto com o
// estado real do gateway, via polling periódico.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/pkg/gpamount"
)

// Store é o subconjunto de persistência que o reconciliador consome.
type Store interface {
	PendingCryptoPayments(ctx context.Context, lookback time.Duration) ([]ledger.CryptoPayment, error)
	ExpireCryptoPaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	UpdateCryptoPaymentStatus(ctx context.Context, txnID, status string) error
	AdjustBalance(ctx context.Context, userID string, delta int64, reason, displayName string) (int64, error)
}

// Gateway consulta o status externo de uma fatura.
type Gateway interface {
	CheckStatus(ctx context.Context, txnID string) (gateway.InvoiceStatus, error)
}

// Notifier entrega notificações fire-and-forget.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, message string)
}

// Reconciler percorre pagamentos pending dentro da janela de lookback e avança
// o status de cada um. Pagamentos mais velhos que a janela são expirados de
// forma explícita em vez de ficarem pending invisíveis pra sempre.
// Callbacks opcionais alimentam métricas por fase.
type Reconciler struct {
	Log      *zap.Logger
	Store    Store
	Gateway  Gateway
	Notifier Notifier

	Interval    time.Duration // intervalo entre ciclos
	Lookback    time.Duration // idade máxima de um pending
	ItemGap     time.Duration // pausa entre consultas (rate limit do gateway)
	ItemTimeout time.Duration // timeout por consulta individual

	OnChecked  func()       // métricas (counter++)
	OnCredited func()       // métricas
	OnExpired  func(int64)  // métricas
	OnError    func(string) // métricas por fase
}

// Run roda o loop supervisionado até o contexto cancelar. O ciclo em curso
// termina inteiro antes do retorno, pra não deixar escrita de status pela metade.
func (r *Reconciler) Run(ctx context.Context) error {
	r.Log.Info("payment reconciler started",
		zap.Duration("interval", r.Interval),
		zap.Duration("lookback", r.Lookback))

	// primeiro ciclo imediato, depois a cada tick
	r.Cycle(ctx)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Cycle(ctx)
		}
	}
}

// Cycle executa uma varredura completa. Falha de um pagamento individual é
// logada e pulada; o ciclo nunca aborta por erro de item.
func (r *Reconciler) Cycle(ctx context.Context) {
	if expired, err := r.Store.ExpireCryptoPaymentsBefore(ctx, time.Now().Add(-r.Lookback)); err != nil {
		r.Log.Warn("expire stale payments", zap.Error(err))
		r.fail("expire")
	} else if expired > 0 {
		r.Log.Info("stale pending payments expired", zap.Int64("count", expired))
		if r.OnExpired != nil {
			r.OnExpired(expired)
		}
	}

	pending, err := r.Store.PendingCryptoPayments(ctx, r.Lookback)
	if err != nil {
		r.Log.Error("list pending payments", zap.Error(err))
		r.fail("list")
		return
	}
	if len(pending) == 0 {
		return
	}

	r.Log.Info("checking pending crypto payments", zap.Int("count", len(pending)))

	for i, pay := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := r.checkOne(ctx, pay); err != nil {
			r.Log.Warn("check payment",
				zap.String("txnId", pay.TxnID),
				zap.String("userId", pay.UserID),
				zap.Error(err))
			r.fail("check")
		}
		// uma consulta em voo por vez, com pausa entre elas
		if r.ItemGap > 0 && i < len(pending)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.ItemGap):
			}
		}
	}
}

// checkOne consulta o gateway e persiste mudança de status. O crédito acontece
// exatamente uma vez: só quando o status armazenado antes desta atualização
// ainda não era completed. Repetir o poll de um completed não re-credita.
func (r *Reconciler) checkOne(ctx context.Context, pay ledger.CryptoPayment) error {
	ictx := ctx
	if r.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, r.ItemTimeout)
		defer cancel()
	}

	st, err := r.Gateway.CheckStatus(ictx, pay.TxnID)
	if err != nil {
		return err
	}
	if r.OnChecked != nil {
		r.OnChecked()
	}

	if st.Status == pay.Status {
		return nil
	}

	if err := r.Store.UpdateCryptoPaymentStatus(ctx, pay.TxnID, st.Status); err != nil {
		return fmt.Errorf("persist status: %w", err)
	}
	r.Log.Info("payment status changed",
		zap.String("txnId", pay.TxnID),
		zap.String("from", pay.Status),
		zap.String("to", st.Status))

	if st.Status == ledger.PaymentCompleted && pay.Status != ledger.PaymentCompleted {
		newBalance, err := r.Store.AdjustBalance(ctx, pay.UserID, pay.AmountGP, ledger.ReasonCryptoDeposit, "")
		if err != nil {
			return fmt.Errorf("credit deposit: %w", err)
		}
		if r.OnCredited != nil {
			r.OnCredited()
		}
		r.Log.Info("crypto deposit credited",
			zap.String("txnId", pay.TxnID),
			zap.String("userId", pay.UserID),
			zap.Int64("amountGp", pay.AmountGP))

		r.Notifier.NotifyUser(ctx, pay.UserID, "deposit-confirmed",
			fmt.Sprintf("Crypto deposit confirmed: $%.2f -> %s. New balance: %s.",
				pay.AmountUSD, gpamount.FormatFull(pay.AmountGP), gpamount.FormatFull(newBalance)))
	}
	return nil
}

func (r *Reconciler) fail(phase string) {
	if r.OnError != nil {
		r.OnError(phase)
	}
}
