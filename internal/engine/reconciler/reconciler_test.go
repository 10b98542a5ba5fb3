package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
)

type fakeStore struct {
	pending  []ledger.CryptoPayment
	statuses map[string]string
	credits  map[string]int64
	expired  int64
}

func newFakeStore(pending ...ledger.CryptoPayment) *fakeStore {
	return &fakeStore{pending: pending, statuses: map[string]string{}, credits: map[string]int64{}}
}

func (f *fakeStore) PendingCryptoPayments(_ context.Context, _ time.Duration) ([]ledger.CryptoPayment, error) {
	return f.pending, nil
}

func (f *fakeStore) ExpireCryptoPaymentsBefore(_ context.Context, _ time.Time) (int64, error) {
	return f.expired, nil
}

func (f *fakeStore) UpdateCryptoPaymentStatus(_ context.Context, txnID, status string) error {
	f.statuses[txnID] = status
	return nil
}

func (f *fakeStore) AdjustBalance(_ context.Context, userID string, delta int64, reason, _ string) (int64, error) {
	if reason != ledger.ReasonCryptoDeposit {
		return 0, errors.New("unexpected reason " + reason)
	}
	f.credits[userID] += delta
	return f.credits[userID], nil
}

type fakeGateway struct {
	statuses map[string]string // txnID -> status
	errs     map[string]error
	calls    int
}

func (f *fakeGateway) CheckStatus(_ context.Context, txnID string) (gateway.InvoiceStatus, error) {
	f.calls++
	if err := f.errs[txnID]; err != nil {
		return gateway.InvoiceStatus{}, err
	}
	return gateway.InvoiceStatus{TxnID: txnID, Status: f.statuses[txnID]}, nil
}

type fakeNotifier struct{ kinds []string }

func (f *fakeNotifier) NotifyUser(_ context.Context, _, kind, _ string) {
	f.kinds = append(f.kinds, kind)
}

func newTestReconciler(st *fakeStore, gw *fakeGateway, n *fakeNotifier) *Reconciler {
	return &Reconciler{
		Log:      zap.NewNop(),
		Store:    st,
		Gateway:  gw,
		Notifier: n,
		Interval: time.Minute,
		Lookback: 24 * time.Hour,
	}
}

func pay(txnID, userID, status string, gp int64) ledger.CryptoPayment {
	return ledger.CryptoPayment{TxnID: txnID, UserID: userID, Status: status, AmountGP: gp, AmountUSD: 10}
}

func TestCycleCreditsCompletedDeposit(t *testing.T) {
	st := newFakeStore(pay("tx1", "u1", ledger.PaymentPending, 66_666_666))
	gw := &fakeGateway{statuses: map[string]string{"tx1": ledger.PaymentCompleted}}
	n := &fakeNotifier{}

	credited := 0
	r := newTestReconciler(st, gw, n)
	r.OnCredited = func() { credited++ }

	r.Cycle(context.Background())

	assert.Equal(t, ledger.PaymentCompleted, st.statuses["tx1"])
	assert.Equal(t, int64(66_666_666), st.credits["u1"])
	assert.Equal(t, 1, credited)
	assert.Equal(t, []string{"deposit-confirmed"}, n.kinds)
}

// Repetir o poll do mesmo pagamento nunca re-credita: quando o status
// armazenado já era completed, a transição não acontece de novo.
func TestCycleCreditIsExactlyOnce(t *testing.T) {
	p := pay("tx1", "u1", ledger.PaymentPending, 1_000)
	st := newFakeStore(p)
	gw := &fakeGateway{statuses: map[string]string{"tx1": ledger.PaymentCompleted}}
	n := &fakeNotifier{}
	r := newTestReconciler(st, gw, n)

	r.Cycle(context.Background())
	require.Equal(t, int64(1_000), st.credits["u1"])

	// num segundo ciclo o registro viria com status já atualizado
	p.Status = ledger.PaymentCompleted
	st.pending = []ledger.CryptoPayment{p}
	r.Cycle(context.Background())

	assert.Equal(t, int64(1_000), st.credits["u1"], "segundo ciclo não pode re-creditar")
	assert.Len(t, n.kinds, 1)
}

func TestCycleIntermediateStatusDoesNotCredit(t *testing.T) {
	st := newFakeStore(pay("tx1", "u1", ledger.PaymentPending, 1_000))
	gw := &fakeGateway{statuses: map[string]string{"tx1": ledger.PaymentConfirming}}
	r := newTestReconciler(st, gw, &fakeNotifier{})

	r.Cycle(context.Background())

	assert.Equal(t, ledger.PaymentConfirming, st.statuses["tx1"])
	assert.Empty(t, st.credits)
}

func TestCycleUnchangedStatusPersistsNothing(t *testing.T) {
	st := newFakeStore(pay("tx1", "u1", ledger.PaymentPending, 1_000))
	gw := &fakeGateway{statuses: map[string]string{"tx1": ledger.PaymentPending}}
	r := newTestReconciler(st, gw, &fakeNotifier{})

	r.Cycle(context.Background())

	assert.Empty(t, st.statuses)
	assert.Empty(t, st.credits)
}

// Falha numa consulta individual não derruba o ciclo: os demais pagamentos
// seguem sendo verificados.
func TestCycleIsolatesItemFailure(t *testing.T) {
	st := newFakeStore(
		pay("bad", "u1", ledger.PaymentPending, 500),
		pay("good", "u2", ledger.PaymentPending, 700),
	)
	gw := &fakeGateway{
		statuses: map[string]string{"good": ledger.PaymentCompleted},
		errs:     map[string]error{"bad": errors.New("gateway 500")},
	}
	var phases []string
	r := newTestReconciler(st, gw, &fakeNotifier{})
	r.OnError = func(phase string) { phases = append(phases, phase) }

	r.Cycle(context.Background())

	assert.Equal(t, 2, gw.calls)
	assert.Equal(t, int64(700), st.credits["u2"])
	assert.Equal(t, []string{"check"}, phases)
}

func TestCycleReportsExpired(t *testing.T) {
	st := newFakeStore()
	st.expired = 3
	var expired int64
	r := newTestReconciler(st, &fakeGateway{statuses: map[string]string{}}, &fakeNotifier{})
	r.OnExpired = func(n int64) { expired += n }

	r.Cycle(context.Background())
	assert.Equal(t, int64(3), expired)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	st := newFakeStore()
	r := newTestReconciler(st, &fakeGateway{statuses: map[string]string{}}, &fakeNotifier{})
	r.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
