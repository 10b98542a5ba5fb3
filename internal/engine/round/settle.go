package round

import (
	"context"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
)

// Desfecho individual de uma aposta liquidada.
const (
	OutcomeWin    = "win"
	OutcomeLoss   = "loss"
	OutcomeRefund = "refund"
)

// SettledBet é o resultado de uma aposta após a liquidação do round.
type SettledBet struct {
	UserID      string
	DisplayName string
	Side        string
	Amount      int64
	Outcome     string
	Payout      int64
	NewBalance  int64
}

// Settlement resume a liquidação de um round.
type Settlement struct {
	RoundID  string
	Winner   string
	TotalPot int64
	Bets     []SettledBet
}

// Settle liquida o round ativo. Chamadas para roundID desconhecido ou já
// liquidado retornam ErrRoundNotFound: é a guarda de idempotência contra
// entregas duplicadas do resultado, tratada como colisão benigna pelo chamador.
//
// draw reembolsa toda aposta integralmente. Vitória de um lado paga
// floor(amount × multiplicador) aos vencedores; perdedores não recebem crédito.
// Toda aposta, ganhe ou perca, acumula floor(amount × taxa) de rakeback.
//
// O slot do round é limpo antes de retornar: erros de storage em apostas
// individuais são logados e puladas, nunca deixam o round meia-liquidado
// passível de um segundo Settle pagar em dobro.
func (m *Manager) Settle(ctx context.Context, roundID, winner string) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.ID != roundID {
		return nil, ErrRoundNotFound
	}
	if winner != SideRed && winner != SideBlue && winner != WinnerDraw {
		return nil, ErrInvalidSide
	}

	m.current.Status = StatusClosed
	bets := m.current.Bets

	s := &Settlement{RoundID: roundID, Winner: winner}
	for _, b := range bets {
		s.TotalPot += b.Amount
	}

	for _, b := range bets {
		sb := SettledBet{UserID: b.UserID, DisplayName: b.DisplayName, Side: b.Side, Amount: b.Amount}

		switch {
		case winner == WinnerDraw:
			sb.Outcome = OutcomeRefund
			sb.Payout = b.Amount
			newBal, err := m.ledger.AdjustBalance(ctx, b.UserID, b.Amount, ledger.ReasonRoundRefund, b.DisplayName)
			if err != nil {
				m.log.Error("settle: refund", zap.String("userId", b.UserID), zap.Error(err))
				continue
			}
			sb.NewBalance = newBal

		case b.Side == winner:
			sb.Outcome = OutcomeWin
			sb.Payout = floorMul(b.Amount, m.cfg.WinMultiplier)
			newBal, err := m.ledger.AdjustBalance(ctx, b.UserID, sb.Payout, ledger.ReasonRoundWin, b.DisplayName)
			if err != nil {
				m.log.Error("settle: payout", zap.String("userId", b.UserID), zap.Error(err))
				continue
			}
			sb.NewBalance = newBal

		default:
			sb.Outcome = OutcomeLoss
			sb.Payout = 0
		}

		if winner != WinnerDraw {
			if rb := floorMul(b.Amount, m.cfg.RakebackRate); rb > 0 {
				if err := m.ledger.AddRakeback(ctx, b.UserID, rb); err != nil {
					m.log.Error("settle: rakeback", zap.String("userId", b.UserID), zap.Error(err))
				}
			}
		}

		if err := m.ledger.RecordBetOutcome(ctx, ledger.BetOutcome{
			UserID:      b.UserID,
			DisplayName: b.DisplayName,
			RoundID:     roundID,
			Side:        b.Side,
			Amount:      b.Amount,
			Outcome:     sb.Outcome,
			Payout:      sb.Payout,
		}); err != nil {
			m.log.Warn("settle: bet history", zap.String("userId", b.UserID), zap.Error(err))
		}

		s.Bets = append(s.Bets, sb)
	}

	if winner == SideRed || winner == SideBlue {
		if err := m.ledger.RecordWinnerSide(ctx, winner); err != nil {
			m.log.Error("settle: record winner side", zap.Error(err))
		}
	}

	m.current.Status = StatusSettled
	m.current = nil
	if err := m.store.SaveSnapshot(ctx, nil); err != nil {
		m.log.Warn("clear round snapshot", zap.Error(err))
	}

	m.log.Info("round settled",
		zap.String("roundId", roundID),
		zap.String("winner", winner),
		zap.Int64("totalPot", s.TotalPot),
		zap.Int("bets", len(bets)))
	return s, nil
}
