package round

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openWithBets(t *testing.T, fl *fakeLedger) *Manager {
	t.Helper()
	m := newTestManager(fl, newFakeStore())
	ctx := context.Background()

	_, err := m.Open(ctx, "r1", "Alice", "Bob")
	require.NoError(t, err)
	_, err = m.PlaceOrChange(ctx, "winner", "W", 1_000_000, SideRed)
	require.NoError(t, err)
	_, err = m.PlaceOrChange(ctx, "loser", "L", 2_000_000, SideBlue)
	require.NoError(t, err)
	return m
}

func TestSettleWinPaysFlooredMultiplier(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["winner"] = 1_000_000
	fl.balances["loser"] = 2_000_000
	m := openWithBets(t, fl)

	st, err := m.Settle(context.Background(), "r1", SideRed)
	require.NoError(t, err)

	assert.Equal(t, int64(3_000_000), st.TotalPot)
	require.Len(t, st.Bets, 2)

	// floor(1_000_000 × 1.95) = 1_950_000
	assert.Equal(t, int64(1_950_000), fl.balances["winner"])
	assert.Equal(t, int64(0), fl.balances["loser"])

	// rakeback acumula pros dois lados: floor(amount × 0.003)
	assert.Equal(t, int64(3_000), fl.rakeback["winner"])
	assert.Equal(t, int64(6_000), fl.rakeback["loser"])

	assert.Equal(t, []string{SideRed}, fl.winners)
	require.Len(t, fl.outcomes, 2)
}

func TestSettleDrawRefundsEveryone(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["winner"] = 1_000_000
	fl.balances["loser"] = 2_000_000
	m := openWithBets(t, fl)

	st, err := m.Settle(context.Background(), "r1", WinnerDraw)
	require.NoError(t, err)

	for _, b := range st.Bets {
		assert.Equal(t, OutcomeRefund, b.Outcome)
		assert.Equal(t, b.Amount, b.Payout)
	}
	assert.Equal(t, int64(1_000_000), fl.balances["winner"])
	assert.Equal(t, int64(2_000_000), fl.balances["loser"])

	// empate não gera rakeback nem conta streak
	assert.Empty(t, fl.rakeback)
	assert.Empty(t, fl.winners)
}

// Liquidação é exactly-once: a segunda entrega do mesmo resultado encontra o
// slot vazio e falha com ErrRoundNotFound, sem pagamento em dobro.
func TestSettleIsIdempotent(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["winner"] = 1_000_000
	fl.balances["loser"] = 2_000_000
	m := openWithBets(t, fl)
	ctx := context.Background()

	_, err := m.Settle(ctx, "r1", SideRed)
	require.NoError(t, err)

	_, err = m.Settle(ctx, "r1", SideRed)
	assert.ErrorIs(t, err, ErrRoundNotFound)
	assert.Equal(t, int64(1_950_000), fl.balances["winner"])

	assert.Nil(t, m.Current())
}

func TestSettleUnknownRoundOrWinner(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["winner"] = 1_000_000
	fl.balances["loser"] = 2_000_000
	m := openWithBets(t, fl)
	ctx := context.Background()

	_, err := m.Settle(ctx, "other-round", SideRed)
	assert.ErrorIs(t, err, ErrRoundNotFound)

	_, err = m.Settle(ctx, "r1", "green")
	assert.ErrorIs(t, err, ErrInvalidSide)
}

// Erro de storage numa aposta individual não trava a liquidação: a aposta é
// pulada, as demais pagam, e o slot é limpo mesmo assim.
func TestSettleSkipsFailingBet(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["winner"] = 1_000_000
	fl.balances["loser"] = 2_000_000
	m := openWithBets(t, fl)
	fl.failAdjustFor = "winner"

	st, err := m.Settle(context.Background(), "r1", SideRed)
	require.NoError(t, err)

	// só a aposta que liquidou aparece no resumo
	require.Len(t, st.Bets, 1)
	assert.Equal(t, "loser", st.Bets[0].UserID)
	assert.Nil(t, m.Current())
}
