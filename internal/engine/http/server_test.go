package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/deposit"
	"github.com/noidbets/duel-bets-engine/internal/engine/dto"
	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/internal/engine/round"
	"github.com/noidbets/duel-bets-engine/internal/engine/withdraw"
	"github.com/noidbets/duel-bets-engine/pkg/contracts/events"
)

// fakeLedger serve tanto o handler HTTP quanto o round manager.
type fakeLedger struct {
	balances map[string]int64
	rakeback map[string]int64
	rsns     map[string]string
	stats    ledger.Stats
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int64{}, rakeback: map[string]int64{}, rsns: map[string]string{}}
}

func (f *fakeLedger) GetOrCreateUser(_ context.Context, userID, displayName string) (ledger.User, error) {
	return ledger.User{ID: userID, DisplayName: displayName,
		Balance: f.balances[userID], RakebackUnclaimed: f.rakeback[userID]}, nil
}

func (f *fakeLedger) AdjustBalance(_ context.Context, userID string, delta int64, _, _ string) (int64, error) {
	b := f.balances[userID] + delta
	if b < 0 {
		b = 0
	}
	f.balances[userID] = b
	return b, nil
}

func (f *fakeLedger) ClaimRakeback(_ context.Context, userID, _ string) (int64, int64, error) {
	claimed := f.rakeback[userID]
	f.rakeback[userID] = 0
	f.balances[userID] += claimed
	return claimed, f.balances[userID], nil
}

func (f *fakeLedger) LinkRSN(_ context.Context, userID, rsn string) error {
	f.rsns[userID] = rsn
	return nil
}

func (f *fakeLedger) FindUserByRSN(_ context.Context, rsn string) (ledger.User, error) {
	for userID, linked := range f.rsns {
		if linked == rsn {
			return ledger.User{ID: userID, Balance: f.balances[userID]}, nil
		}
	}
	return ledger.User{}, ledger.ErrNotFound
}

func (f *fakeLedger) PendingCryptoWithdrawals(_ context.Context) ([]ledger.CryptoWithdrawal, error) {
	return nil, nil
}

func (f *fakeLedger) Stats(_ context.Context) (ledger.Stats, error) { return f.stats, nil }

func (f *fakeLedger) AddRakeback(_ context.Context, userID string, amount int64) error {
	f.rakeback[userID] += amount
	return nil
}

func (f *fakeLedger) RecordBetOutcome(_ context.Context, _ ledger.BetOutcome) error { return nil }
func (f *fakeLedger) RecordWinnerSide(_ context.Context, _ string) error            { return nil }

type fakeRoundStore struct {
	queued map[string]round.QueuedBet
}

func (f *fakeRoundStore) QueuedBets(_ context.Context) ([]round.QueuedBet, error) {
	out := make([]round.QueuedBet, 0, len(f.queued))
	for _, qb := range f.queued {
		out = append(out, qb)
	}
	return out, nil
}
func (f *fakeRoundStore) PutQueuedBet(_ context.Context, qb round.QueuedBet) error {
	f.queued[qb.UserID] = qb
	return nil
}
func (f *fakeRoundStore) DeleteQueuedBet(_ context.Context, userID string) (round.QueuedBet, error) {
	qb, ok := f.queued[userID]
	if !ok {
		return round.QueuedBet{}, round.ErrNoQueuedBet
	}
	delete(f.queued, userID)
	return qb, nil
}
func (f *fakeRoundStore) ClearQueuedBets(_ context.Context) error {
	f.queued = map[string]round.QueuedBet{}
	return nil
}
func (f *fakeRoundStore) SaveSnapshot(_ context.Context, _ *round.Round) error  { return nil }
func (f *fakeRoundStore) LoadSnapshot(_ context.Context) (*round.Round, error) { return nil, nil }

type fakeNotifier struct{ kinds []string }

func (f *fakeNotifier) NotifyUser(_ context.Context, _, kind, _ string) {
	f.kinds = append(f.kinds, kind)
}
func (f *fakeNotifier) PublishRoundSettled(_ context.Context, _ events.RoundSettled) {}

type fakePayGateway struct{}

func (fakePayGateway) CreateInvoice(_ context.Context, _ string, _ float64, _ string) (gateway.Invoice, error) {
	return gateway.Invoice{TxnID: "tx-1", InvoiceURL: "https://pay.example/tx-1"}, nil
}
func (fakePayGateway) InvoiceDetails(_ context.Context, txnID string) (gateway.Invoice, error) {
	return gateway.Invoice{TxnID: txnID, WalletHash: "addr-1", Currency: "USDT", Amount: "10"}, nil
}
func (fakePayGateway) CreatePayout(_ context.Context, _, _ string, _ float64) (gateway.Payout, error) {
	return gateway.Payout{}, errors.New("not under test")
}
func (fakePayGateway) WalletBalance(_ context.Context, currency string) (gateway.WalletBalance, error) {
	return gateway.WalletBalance{Currency: currency, Balance: "999"}, nil
}

type payLedgerAdapter struct{ *fakeLedger }

func (a payLedgerAdapter) RecordCryptoPayment(_ context.Context, _ ledger.CryptoPayment) error {
	return nil
}
func (a payLedgerAdapter) CryptoPayment(_ context.Context, _ string) (ledger.CryptoPayment, error) {
	return ledger.CryptoPayment{}, ledger.ErrNotFound
}
func (a payLedgerAdapter) UserCryptoPayments(_ context.Context, _ string, _ int) ([]ledger.CryptoPayment, error) {
	return nil, nil
}
func (a payLedgerAdapter) RecordCryptoWithdrawal(_ context.Context, _ ledger.CryptoWithdrawal) error {
	return nil
}
func (a payLedgerAdapter) UpdateCryptoWithdrawalStatus(_ context.Context, _, _, _ string) error {
	return nil
}

func newTestServer(fl *fakeLedger) (*httptest.Server, *fakeNotifier) {
	log := zap.NewNop()
	rounds := round.NewManager(round.Config{
		WinMultiplier: 1.95,
		RakebackRate:  0.003,
		BetWindow:     30 * time.Second,
	}, log, fl, &fakeRoundStore{queued: map[string]round.QueuedBet{}})

	adapter := payLedgerAdapter{fl}
	deposits := &deposit.Service{
		Log:     log,
		Cfg:     deposit.Config{MinUSD: 5, MaxUSD: 10000, GPPerUSDDeposit: 1_000_000 / 0.15},
		Ledger:  adapter,
		Gateway: fakePayGateway{},
	}
	withdrawals := &withdraw.Orchestrator{
		Log:      log,
		Cfg:      withdraw.Config{MinUSD: 10, MaxUSD: 5000, GPPerUSDWithdrawal: 1_000_000 / 0.135},
		Ledger:   adapter,
		Gateway:  fakePayGateway{},
		Notifier: &fakeNotifier{},
	}

	n := &fakeNotifier{}
	srv := NewServer(log, rounds, fl, deposits, withdrawals, n)
	return httptest.NewServer(srv.Router()), n
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestBetFlowOverHTTP(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["u1"] = 5_000_000
	ts, _ := newTestServer(fl)
	defer ts.Close()

	// abre o round
	resp := postJSON(t, ts.URL+"/api/duel/round-created",
		dto.RoundCreatedRequest{RoundID: "r1", Red: "Alice", Blue: "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// segundo round é conflito
	resp = postJSON(t, ts.URL+"/api/duel/round-created",
		dto.RoundCreatedRequest{RoundID: "r2", Red: "C", Blue: "D"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// aposta com sufixo abreviado
	resp = postJSON(t, ts.URL+"/api/bets",
		dto.PlaceBetRequest{UserID: "u1", DisplayName: "U", Amount: "2m", Side: "red"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var placed dto.PlaceBetResponse
	decodeInto(t, resp, &placed)
	assert.Equal(t, int64(2_000_000), placed.Amount)
	assert.Equal(t, int64(3_000_000), placed.NewBalance)

	// aposta acima do saldo é conflito
	resp = postJSON(t, ts.URL+"/api/bets",
		dto.PlaceBetRequest{UserID: "u2", Amount: "1m", Side: "blue"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// estado do round reflete a aposta
	rresp, err := http.Get(ts.URL + "/api/round")
	require.NoError(t, err)
	var view dto.RoundViewResponse
	decodeInto(t, rresp, &view)
	assert.Equal(t, "r1", view.RoundID)
	assert.Equal(t, int64(2_000_000), view.TotalPot)

	// liquida com vitória do red
	resp = postJSON(t, ts.URL+"/api/duel/round-result",
		dto.RoundResultRequest{RoundID: "r1", Winner: "red"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result dto.RoundResultResponse
	decodeInto(t, resp, &result)
	require.Len(t, result.Bets, 1)
	assert.Equal(t, int64(1_950_000 * 2), result.Bets[0].Payout)
	assert.Equal(t, int64(3_000_000+3_900_000), fl.balances["u1"])
}

func TestRoundResultUnknownRoundIsIgnored(t *testing.T) {
	ts, _ := newTestServer(newFakeLedger())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/duel/round-result",
		dto.RoundResultRequest{RoundID: "ghost", Winner: "red"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result dto.RoundResultResponse
	decodeInto(t, resp, &result)
	assert.True(t, result.Ignored)
}

func TestCheckBalanceAndRakebackClaim(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["u1"] = 1_500_000
	fl.rakeback["u1"] = 4_500
	ts, _ := newTestServer(fl)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/bank/check-balance", dto.BankRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal dto.BalanceResponse
	decodeInto(t, resp, &bal)
	assert.Equal(t, int64(1_500_000), bal.Balance)
	assert.Equal(t, "1.5m", bal.BalanceShort)
	assert.Equal(t, int64(4_500), bal.RakebackUnclaimed)

	resp = postJSON(t, ts.URL+"/api/rakeback/claim", dto.ClaimRakebackRequest{UserID: "u1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var claim dto.ClaimRakebackResponse
	decodeInto(t, resp, &claim)
	assert.Equal(t, int64(4_500), claim.Claimed)
	assert.Equal(t, int64(1_504_500), claim.NewBalance)
}

func TestBankDepositAndWithdraw(t *testing.T) {
	fl := newFakeLedger()
	ts, _ := newTestServer(fl)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/bank/deposit",
		dto.BankRequest{UserID: "u1", DisplayName: "U", Amount: "10m"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal dto.BalanceResponse
	decodeInto(t, resp, &bal)
	assert.Equal(t, int64(10_000_000), bal.Balance)

	// saque acima do saldo é conflito
	resp = postJSON(t, ts.URL+"/api/bank/withdraw",
		dto.BankRequest{UserID: "u1", Amount: "11m"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/bank/withdraw",
		dto.BankRequest{UserID: "u1", Amount: "4m"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &bal)
	assert.Equal(t, int64(6_000_000), bal.Balance)
}

func TestCryptoWithdrawValidationOverHTTP(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["u1"] = 10_000_000_000
	ts, _ := newTestServer(fl)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/crypto/withdraw",
		dto.CryptoWithdrawRequest{UserID: "u1", Currency: "BTC", Address: "bogus", AmountUSD: 50})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/crypto/withdraw",
		dto.CryptoWithdrawRequest{UserID: "u1", Currency: "DOGE", Address: "whatever", AmountUSD: 50})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCryptoDepositOverHTTP(t *testing.T) {
	ts, _ := newTestServer(newFakeLedger())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/crypto/deposit",
		dto.CryptoDepositRequest{UserID: "u1", DisplayName: "U", AmountUSD: 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created dto.CryptoDepositResponse
	decodeInto(t, resp, &created)
	assert.Equal(t, "tx-1", created.TxnID)
	assert.Equal(t, int64(66_666_666), created.EstimatedGP)

	// abaixo do mínimo
	resp = postJSON(t, ts.URL+"/api/crypto/deposit",
		dto.CryptoDepositRequest{UserID: "u1", AmountUSD: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestLinkAndResolveRSN(t *testing.T) {
	fl := newFakeLedger()
	fl.balances["u1"] = 2_000_000
	ts, _ := newTestServer(fl)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/bank/link", dto.LinkRSNRequest{UserID: "u1", RSN: "Zezima"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	rresp, err := http.Get(ts.URL + "/api/bank/rsn?rsn=Zezima")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rresp.StatusCode)
	var bal dto.BalanceResponse
	decodeInto(t, rresp, &bal)
	assert.Equal(t, "u1", bal.UserID)
	assert.Equal(t, int64(2_000_000), bal.Balance)

	rresp, err = http.Get(ts.URL + "/api/bank/rsn?rsn=Nobody")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rresp.StatusCode)
	rresp.Body.Close()
}

func TestPendingWithdrawalsEndpoint(t *testing.T) {
	ts, _ := newTestServer(newFakeLedger())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/crypto/withdrawals/pending")
	require.NoError(t, err)
	var views []dto.CryptoWithdrawalView
	decodeInto(t, resp, &views)
	assert.Empty(t, views)
}

func TestStatsEndpoint(t *testing.T) {
	fl := newFakeLedger()
	fl.stats = ledger.Stats{RedStreak: 3, LastWinner: "red", LastWinners: []string{"blue", "red", "red", "red"}}
	ts, _ := newTestServer(fl)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	var st dto.StatsResponse
	decodeInto(t, resp, &st)
	assert.Equal(t, 3, st.RedStreak)
	assert.Equal(t, "red", st.LastWinner)
	assert.Len(t, st.LastWinners, 4)
}
