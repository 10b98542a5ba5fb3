// Package http expõe a API REST do engine: ciclo de vida do round, apostas,
// banco in-game, rakeback e fluxos cripto.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/deposit"
	"github.com/noidbets/duel-bets-engine/internal/engine/dto"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/internal/engine/round"
	"github.com/noidbets/duel-bets-engine/internal/engine/withdraw"
	"github.com/noidbets/duel-bets-engine/pkg/contracts/events"
	"github.com/noidbets/duel-bets-engine/pkg/gpamount"
)

// Ledger define as operações de saldo e conta usadas pelo handler HTTP
type Ledger interface {
	GetOrCreateUser(ctx context.Context, userID, displayName string) (ledger.User, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, reason, displayName string) (int64, error)
	ClaimRakeback(ctx context.Context, userID, displayName string) (claimed int64, newBalance int64, err error)
	LinkRSN(ctx context.Context, userID, rsn string) error
	FindUserByRSN(ctx context.Context, rsn string) (ledger.User, error)
	PendingCryptoWithdrawals(ctx context.Context) ([]ledger.CryptoWithdrawal, error)
	Stats(ctx context.Context) (ledger.Stats, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, message string)
	PublishRoundSettled(ctx context.Context, ev events.RoundSettled)
}

// Server expõe os endpoints HTTP do engine de apostas
type Server struct {
	log      *zap.Logger
	rounds   *round.Manager
	ledger   Ledger
	deposits *deposit.Service
	withdraw *withdraw.Orchestrator
	notifier Notifier
}

// NewServer instancia o servidor HTTP do engine
func NewServer(log *zap.Logger, rm *round.Manager, l Ledger, d *deposit.Service, w *withdraw.Orchestrator, n Notifier) *Server {
	return &Server{log: log, rounds: rm, ledger: l, deposits: d, withdraw: w, notifier: n}
}

// Router retorna o mux HTTP com as rotas da API do engine
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/duel/round-created", s.roundCreated)               // POST
	mux.HandleFunc("/api/duel/round-result", s.roundResult)                 // POST
	mux.HandleFunc("/api/duel/round-reset", s.roundReset)                   // POST
	mux.HandleFunc("/api/round", s.getRound)                                // GET
	mux.HandleFunc("/api/bets", s.placeBet)                                 // POST
	mux.HandleFunc("/api/bets/cancel", s.cancelBet)                         // POST
	mux.HandleFunc("/api/rakeback/claim", s.claimRakeback)                  // POST
	mux.HandleFunc("/api/bank/deposit", s.bankDeposit)                      // POST
	mux.HandleFunc("/api/bank/withdraw", s.bankWithdraw)                    // POST
	mux.HandleFunc("/api/bank/check-balance", s.checkBalance)               // POST
	mux.HandleFunc("/api/bank/link", s.linkRSN)                             // POST
	mux.HandleFunc("/api/bank/rsn", s.resolveRSN)                           // GET ?rsn=...
	mux.HandleFunc("/api/crypto/deposit", s.cryptoDeposit)                  // POST
	mux.HandleFunc("/api/crypto/deposits", s.cryptoDeposits)                // GET ?userId=...
	mux.HandleFunc("/api/crypto/deposit-status", s.cryptoDepositStatus)     // GET ?txnId=...
	mux.HandleFunc("/api/crypto/withdraw", s.cryptoWithdraw)                // POST
	mux.HandleFunc("/api/crypto/withdrawals/pending", s.pendingWithdrawals) // GET
	mux.HandleFunc("/api/stats", s.getStats)                                // GET
	mux.HandleFunc("/health", s.health)                                     // GET
	return mux
}

// roundCreated abre um novo round e dá replay nas apostas enfileiradas
func (s *Server) roundCreated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RoundCreatedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.RoundID == "" || req.Red == "" || req.Blue == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	results, err := s.rounds.Open(r.Context(), req.RoundID, req.Red, req.Blue)
	if err != nil {
		if errors.Is(err, round.ErrRoundActive) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	placed, dropped := 0, 0
	for _, res := range results {
		if res.Placed {
			placed++
			s.notifier.NotifyUser(r.Context(), res.UserID, "bet-placed",
				fmt.Sprintf("Your queued %s bet on %s was placed. Balance: %s.",
					gpamount.FormatShort(res.Amount), res.Side, gpamount.FormatFull(res.Balance)))
		} else {
			dropped++
			s.notifier.NotifyUser(r.Context(), res.UserID, "bet-dropped",
				fmt.Sprintf("Your queued %s bet on %s was dropped: insufficient balance.",
					gpamount.FormatShort(res.Amount), res.Side))
		}
	}

	cur := s.rounds.Current()
	writeJSON(w, dto.RoundOpenedResponse{
		RoundID:  req.RoundID,
		ClosesAt: cur.ClosesAt,
		Replayed: placed,
		Dropped:  dropped,
	})
}

// roundResult liquida o round. Resultado pra round desconhecido ou já
// liquidado é colisão benigna: responde 200 com ignored=true.
func (s *Server) roundResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RoundResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.RoundID == "" || req.Winner == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	st, err := s.rounds.Settle(r.Context(), req.RoundID, req.Winner)
	if err != nil {
		if errors.Is(err, round.ErrRoundNotFound) {
			writeJSON(w, dto.RoundResultResponse{RoundID: req.RoundID, Winner: req.Winner, Ignored: true})
			return
		}
		if errors.Is(err, round.ErrInvalidSide) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.RoundResultResponse{RoundID: st.RoundID, Winner: st.Winner, TotalPot: st.TotalPot}
	ev := events.RoundSettled{RoundID: st.RoundID, Winner: st.Winner, TotalPot: st.TotalPot, TsUnixMs: time.Now().UnixMilli()}
	for _, b := range st.Bets {
		resp.Bets = append(resp.Bets, dto.SettledBetResponse{
			UserID: b.UserID, Side: b.Side, Amount: b.Amount,
			Outcome: b.Outcome, Payout: b.Payout, NewBalance: b.NewBalance,
		})
		switch b.Outcome {
		case round.OutcomeWin:
			ev.Winners = append(ev.Winners, events.RoundPayout{UserID: b.UserID, Amount: b.Amount, Payout: b.Payout})
			s.notifier.NotifyUser(r.Context(), b.UserID, "bet-won",
				fmt.Sprintf("You won %s! New balance: %s.", gpamount.FormatShort(b.Payout), gpamount.FormatFull(b.NewBalance)))
		case round.OutcomeLoss:
			s.notifier.NotifyUser(r.Context(), b.UserID, "bet-lost",
				fmt.Sprintf("You lost %s on %s.", gpamount.FormatShort(b.Amount), b.Side))
		case round.OutcomeRefund:
			s.notifier.NotifyUser(r.Context(), b.UserID, "bet-refunded",
				fmt.Sprintf("Draw: your %s bet was refunded. Balance: %s.", gpamount.FormatShort(b.Amount), gpamount.FormatFull(b.NewBalance)))
		}
	}
	s.notifier.PublishRoundSettled(r.Context(), ev)

	writeJSON(w, resp)
}

// roundReset descarta o slot do round sem reembolso (intervenção do operador)
func (s *Server) roundReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.rounds.ForceReset(r.Context()); err != nil {
		if errors.Is(err, round.ErrRoundNotFound) {
			http.Error(w, "no active round", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.StatusResponse{Status: "RESET"})
}

// getRound retorna o estado corrente do round ativo
func (s *Server) getRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cur := s.rounds.Current()
	if cur == nil {
		http.Error(w, "no active round", http.StatusNotFound)
		return
	}
	resp := dto.RoundViewResponse{
		RoundID:  cur.ID,
		Red:      cur.Red,
		Blue:     cur.Blue,
		Status:   string(cur.Status),
		ClosesAt: cur.ClosesAt,
	}
	for _, b := range cur.Bets {
		resp.TotalPot += b.Amount
		resp.Bets = append(resp.Bets, dto.BetViewResponse{
			UserID: b.UserID, DisplayName: b.DisplayName, Amount: b.Amount, Side: b.Side,
		})
	}
	writeJSON(w, resp)
}

// placeBet coloca (ou substitui) a aposta do usuário; sem round aberto, enfileira
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount == "" || req.Side == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	amount, ok := gpamount.Parse(req.Amount)
	if !ok || amount <= 0 {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	res, err := s.rounds.PlaceOrChange(r.Context(), req.UserID, req.DisplayName, amount, req.Side)
	if err != nil {
		switch {
		case errors.Is(err, round.ErrInvalidSide), errors.Is(err, round.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, round.ErrInsufficientBalance):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, dto.PlaceBetResponse{
		Queued:     res.Queued,
		Replaced:   res.Replaced,
		Amount:     amount,
		Side:       req.Side,
		NewBalance: res.NewBalance,
	})
}

// cancelBet remove a aposta ativa (com reembolso) ou a enfileirada (sem débito prévio)
func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CancelBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	refunded, newBal, err := s.rounds.Cancel(r.Context(), req.UserID)
	if err == nil {
		writeJSON(w, dto.CancelBetResponse{Refunded: refunded, NewBalance: newBal})
		return
	}
	if !errors.Is(err, round.ErrRoundNotOpen) && !errors.Is(err, round.ErrNoActiveBet) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// sem aposta ativa: tenta a fila
	if _, qerr := s.rounds.CancelQueued(r.Context(), req.UserID); qerr != nil {
		http.Error(w, "no bet to cancel", http.StatusNotFound)
		return
	}
	writeJSON(w, dto.CancelBetResponse{WasQueued: true})
}

// claimRakeback zera o bucket de rakeback e credita no saldo
func (s *Server) claimRakeback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ClaimRakebackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	claimed, newBal, err := s.ledger.ClaimRakeback(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.ClaimRakebackResponse{Claimed: claimed, NewBalance: newBal})
}

// bankDeposit credita GP entregue no banco in-game
func (s *Server) bankDeposit(w http.ResponseWriter, r *http.Request) {
	s.bankAdjust(w, r, ledger.ReasonGPDeposit, +1)
}

// bankWithdraw debita GP retirado no banco in-game
func (s *Server) bankWithdraw(w http.ResponseWriter, r *http.Request) {
	s.bankAdjust(w, r, ledger.ReasonGPWithdraw, -1)
}

func (s *Server) bankAdjust(w http.ResponseWriter, r *http.Request, reason string, sign int64) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.BankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	amount, ok := gpamount.Parse(req.Amount)
	if !ok || amount <= 0 {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	u, err := s.ledger.GetOrCreateUser(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sign < 0 && u.Balance < amount {
		http.Error(w, "insufficient balance", http.StatusConflict)
		return
	}

	newBal, err := s.ledger.AdjustBalance(r.Context(), req.UserID, sign*amount, reason, req.DisplayName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{
		UserID:            req.UserID,
		Balance:           newBal,
		BalanceShort:      gpamount.FormatShort(newBal),
		RakebackUnclaimed: u.RakebackUnclaimed,
	})
}

// checkBalance retorna saldo e rakeback acumulado do usuário
func (s *Server) checkBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.BankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	u, err := s.ledger.GetOrCreateUser(r.Context(), req.UserID, req.DisplayName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{
		UserID:            u.ID,
		Balance:           u.Balance,
		BalanceShort:      gpamount.FormatShort(u.Balance),
		RakebackUnclaimed: u.RakebackUnclaimed,
	})
}

// linkRSN associa o nick in-game (RSN) à conta do usuário
func (s *Server) linkRSN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.LinkRSNRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.RSN == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.ledger.LinkRSN(r.Context(), req.UserID, req.RSN); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.StatusResponse{Status: "LINKED"})
}

// resolveRSN acha o dono de um nick in-game vinculado
func (s *Server) resolveRSN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rsn := r.URL.Query().Get("rsn")
	if rsn == "" {
		http.Error(w, "rsn required", http.StatusBadRequest)
		return
	}
	u, err := s.ledger.FindUserByRSN(r.Context(), rsn)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "rsn not linked", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{
		UserID:            u.ID,
		Balance:           u.Balance,
		BalanceShort:      gpamount.FormatShort(u.Balance),
		RakebackUnclaimed: u.RakebackUnclaimed,
	})
}

// cryptoDeposit emite uma fatura de depósito no gateway
func (s *Server) cryptoDeposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CryptoDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	created, err := s.deposits.Create(r.Context(), req.UserID, req.DisplayName, req.AmountUSD)
	if err != nil {
		if errors.Is(err, deposit.ErrInvalidAmount) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "payment gateway unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, dto.CryptoDepositResponse{
		TxnID:       created.TxnID,
		InvoiceURL:  created.InvoiceURL,
		AmountUSD:   created.AmountUSD,
		EstimatedGP: created.EstimatedGP,
		WalletHash:  created.WalletHash,
		PayCurrency: created.PayCurrency,
		PayAmount:   created.PayAmount,
	})
}

// cryptoDeposits lista os depósitos recentes do usuário
func (s *Server) cryptoDeposits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	payments, err := s.deposits.Recent(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]dto.CryptoPaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, dto.CryptoPaymentView{
			TxnID:     p.TxnID,
			AmountUSD: p.AmountUSD,
			AmountGP:  p.AmountGP,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		})
	}
	writeJSON(w, views)
}

// cryptoDepositStatus retorna o estado interno de um depósito
func (s *Server) cryptoDepositStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	txnID := r.URL.Query().Get("txnId")
	if txnID == "" {
		http.Error(w, "txnId required", http.StatusBadRequest)
		return
	}
	p, err := s.deposits.Status(r.Context(), txnID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "deposit not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.CryptoPaymentView{
		TxnID:     p.TxnID,
		AmountUSD: p.AmountUSD,
		AmountGP:  p.AmountGP,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	})
}

// pendingWithdrawals lista a fila de saques aguardando payout ou remediação manual
func (s *Server) pendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.ledger.PendingCryptoWithdrawals(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]dto.CryptoWithdrawalView, 0, len(list))
	for _, wd := range list {
		views = append(views, dto.CryptoWithdrawalView{
			WithdrawalID: wd.WithdrawalID,
			UserID:       wd.UserID,
			AmountGP:     wd.AmountGP,
			AmountUSD:    wd.AmountUSD,
			Currency:     wd.Currency,
			Address:      wd.Address,
			Status:       wd.Status,
			CreatedAt:    wd.CreatedAt,
		})
	}
	writeJSON(w, views)
}

// cryptoWithdraw valida e executa um saque cripto (commit-then-attempt)
func (s *Server) cryptoWithdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.CryptoWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Currency == "" || req.Address == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	res, err := s.withdraw.Request(r.Context(), req.UserID, req.DisplayName, req.Currency, req.Address, req.AmountUSD)
	if err != nil {
		switch {
		case errors.Is(err, withdraw.ErrUnsupportedCurrency),
			errors.Is(err, withdraw.ErrInvalidAddress),
			errors.Is(err, withdraw.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, withdraw.ErrInsufficientBalance):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, withdraw.ErrWalletUnavailable):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, dto.CryptoWithdrawResponse{
		WithdrawalID: res.WithdrawalID,
		Status:       res.Status,
		RequiredGP:   res.RequiredGP,
		NewBalance:   res.NewBalance,
		PayoutRef:    res.PayoutRef,
	})
}

// getStats retorna streaks e o histórico dos últimos rounds
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.ledger.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.StatsResponse{
		RedStreak:   st.RedStreak,
		BlueStreak:  st.BlueStreak,
		LastWinner:  st.LastWinner,
		LastWinners: st.LastWinners,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
