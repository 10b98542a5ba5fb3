package round

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
)

// Lados de um round.
const (
	SideRed  = "red"
	SideBlue = "blue"
)

// Desfecho de um round.
const (
	WinnerDraw = "draw"
)

type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusSettled Status = "SETTLED"
	StatusVoid    Status = "VOID"
)

var (
	ErrRoundActive         = errors.New("a round is already active")
	ErrRoundNotFound       = errors.New("round not found or already settled")
	ErrRoundNotOpen        = errors.New("no open round")
	ErrNoActiveBet         = errors.New("no active bet this round")
	ErrNoQueuedBet         = errors.New("no queued bet")
	ErrInvalidSide         = errors.New("side must be red or blue")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Bet é uma aposta registrada no round ativo. No máximo uma por usuário;
// uma nova colocação substitui a anterior.
type Bet struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Amount      int64  `json:"amount"`
	Side        string `json:"side"`
}

// QueuedBet é uma aposta feita sem round aberto, guardada até o próximo abrir.
type QueuedBet struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Amount      int64  `json:"amount"`
	Side        string `json:"side"`
}

// Round é o slot único de round ativo do processo.
type Round struct {
	ID       string    `json:"id"`
	Red      string    `json:"red"`
	Blue     string    `json:"blue"`
	Status   Status    `json:"status"`
	Bets     []Bet     `json:"bets"`
	OpenedAt time.Time `json:"opened_at"`
	ClosesAt time.Time `json:"closes_at"`
}

// Ledger é o subconjunto do ledger que o round consome.
type Ledger interface {
	GetOrCreateUser(ctx context.Context, userID, displayName string) (ledger.User, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, reason, displayName string) (int64, error)
	AddRakeback(ctx context.Context, userID string, amount int64) error
	RecordBetOutcome(ctx context.Context, o ledger.BetOutcome) error
	RecordWinnerSide(ctx context.Context, side string) error
}

// Store persiste a fila de apostas e o snapshot do round ativo,
// para sobreviver a restart do processo.
type Store interface {
	QueuedBets(ctx context.Context) ([]QueuedBet, error)
	PutQueuedBet(ctx context.Context, qb QueuedBet) error
	DeleteQueuedBet(ctx context.Context, userID string) (QueuedBet, error)
	ClearQueuedBets(ctx context.Context) error
	SaveSnapshot(ctx context.Context, r *Round) error
	LoadSnapshot(ctx context.Context) (*Round, error)
}

type Config struct {
	WinMultiplier float64       // ex: 1.95
	RakebackRate  float64       // ex: 0.003
	BetWindow     time.Duration // ex: 30s
}

// Manager é a máquina de estados do round: OPEN → CLOSED → {SETTLED, VOID}.
// Toda mutação de round e de apostas passa pelo mutex único, garantindo que a
// checagem de saldo contra a aposta corrente nunca leia estado velho.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	log    *zap.Logger
	ledger Ledger
	store  Store

	current *Round
}

func NewManager(cfg Config, log *zap.Logger, l Ledger, s Store) *Manager {
	return &Manager{cfg: cfg, log: log, ledger: l, store: s}
}

// Restore recarrega o snapshot do round após restart. Um round que estava
// OPEN volta como CLOSED: a janela de apostas se perdeu, falta só liquidar.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.store.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if r.Status == StatusOpen {
		r.Status = StatusClosed
	}
	m.current = r
	m.log.Info("round restored from snapshot",
		zap.String("roundId", r.ID), zap.String("status", string(r.Status)))
	return nil
}

// Current retorna uma cópia do round ativo, ou nil.
func (m *Manager) Current() *Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	cp := *m.current
	cp.Bets = append([]Bet(nil), m.current.Bets...)
	return &cp
}

// ReplayResult descreve o destino de uma aposta enfileirada no replay da
// abertura: colocada com débito único, ou descartada por saldo insuficiente.
type ReplayResult struct {
	UserID      string
	DisplayName string
	Amount      int64
	Side        string
	Placed      bool
	Balance     int64 // saldo após o débito (ou saldo atual, se descartada)
}

// Open abre um novo round. Falha se já existe round ativo (OPEN ou CLOSED).
// As apostas enfileiradas são reavaliadas com o saldo atual: suficiente vira
// aposta real com um único débito; insuficiente é descartada. A fila é limpa
// ao final e os resultados voltam pro chamador notificar cada usuário.
func (m *Manager) Open(ctx context.Context, roundID, red, blue string) ([]ReplayResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrRoundActive
	}

	now := time.Now()
	r := &Round{
		ID:       roundID,
		Red:      red,
		Blue:     blue,
		Status:   StatusOpen,
		OpenedAt: now,
		ClosesAt: now.Add(m.cfg.BetWindow),
	}

	queued, err := m.store.QueuedBets(ctx)
	if err != nil {
		return nil, err
	}

	var results []ReplayResult
	for _, qb := range queued {
		res := ReplayResult{UserID: qb.UserID, DisplayName: qb.DisplayName, Amount: qb.Amount, Side: qb.Side}

		u, err := m.ledger.GetOrCreateUser(ctx, qb.UserID, qb.DisplayName)
		if err != nil {
			m.log.Error("queued bet replay: user lookup", zap.String("userId", qb.UserID), zap.Error(err))
			results = append(results, res)
			continue
		}

		if u.Balance < qb.Amount {
			res.Balance = u.Balance
			results = append(results, res)
			continue
		}

		newBal, err := m.ledger.AdjustBalance(ctx, qb.UserID, -qb.Amount, ledger.ReasonBet, qb.DisplayName)
		if err != nil {
			m.log.Error("queued bet replay: debit", zap.String("userId", qb.UserID), zap.Error(err))
			results = append(results, res)
			continue
		}

		r.Bets = append(r.Bets, Bet{UserID: qb.UserID, DisplayName: qb.DisplayName, Amount: qb.Amount, Side: qb.Side})
		res.Placed = true
		res.Balance = newBal
		results = append(results, res)
	}

	if err := m.store.ClearQueuedBets(ctx); err != nil {
		m.log.Warn("clear queued bets", zap.Error(err))
	}

	m.current = r
	m.snapshot(ctx)

	m.log.Info("round opened",
		zap.String("roundId", roundID),
		zap.Int("replayedBets", len(r.Bets)),
		zap.Int("queuedTotal", len(queued)))
	return results, nil
}

// Close fecha a janela de apostas: OPEN → CLOSED.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != StatusOpen {
		return ErrRoundNotOpen
	}
	m.current.Status = StatusClosed
	m.snapshot(ctx)
	m.log.Info("round closed", zap.String("roundId", m.current.ID))
	return nil
}

// CloseIfDue fecha o round se o deadline da janela já passou.
// Usado pelo loop de countdown; retorna true quando fechou.
func (m *Manager) CloseIfDue(ctx context.Context, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != StatusOpen || now.Before(m.current.ClosesAt) {
		return false
	}
	m.current.Status = StatusClosed
	m.snapshot(ctx)
	m.log.Info("round closed by countdown", zap.String("roundId", m.current.ID))
	return true
}

// ForceReset limpa o slot do round sem reembolsar apostas (VOID operacional).
// O operador deve ter liquidado ou anulado antes.
func (m *Manager) ForceReset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrRoundNotFound
	}
	id := m.current.ID
	m.current = nil
	if err := m.store.SaveSnapshot(ctx, nil); err != nil {
		m.log.Warn("clear round snapshot", zap.Error(err))
	}
	m.log.Warn("round force-reset, in-flight bets dropped without refund", zap.String("roundId", id))
	return nil
}

// PlaceResult é o resultado de uma colocação de aposta.
type PlaceResult struct {
	Queued     bool
	Replaced   bool  // havia aposta anterior neste round
	NewBalance int64 // válido quando !Queued
}

// PlaceOrChange coloca ou substitui a aposta do usuário no round aberto.
// Sem round aberto a aposta vai pra fila do próximo round (upsert por usuário).
// A checagem de saldo considera o valor já comprometido na aposta corrente:
// reembolsa a anterior primeiro e debita a nova em seguida, então o usuário
// consegue reduzir ou inverter a aposta sem precisar de saldo extra parado.
func (m *Manager) PlaceOrChange(ctx context.Context, userID, displayName string, amount int64, side string) (PlaceResult, error) {
	if side != SideRed && side != SideBlue {
		return PlaceResult{}, ErrInvalidSide
	}
	if amount <= 0 {
		return PlaceResult{}, ErrInvalidAmount
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != StatusOpen {
		qb := QueuedBet{UserID: userID, DisplayName: displayName, Amount: amount, Side: side}
		if err := m.store.PutQueuedBet(ctx, qb); err != nil {
			return PlaceResult{}, err
		}
		return PlaceResult{Queued: true}, nil
	}

	u, err := m.ledger.GetOrCreateUser(ctx, userID, displayName)
	if err != nil {
		return PlaceResult{}, err
	}

	existing := m.findBet(userID)
	effective := u.Balance
	if existing != nil {
		effective += existing.Amount
	}
	if effective < amount {
		return PlaceResult{}, ErrInsufficientBalance
	}

	if existing != nil {
		if _, err := m.ledger.AdjustBalance(ctx, userID, existing.Amount, ledger.ReasonBetChangeRefund, displayName); err != nil {
			return PlaceResult{}, err
		}
	}

	newBal, err := m.ledger.AdjustBalance(ctx, userID, -amount, ledger.ReasonBet, displayName)
	if err != nil {
		return PlaceResult{}, err
	}

	replaced := existing != nil
	if existing != nil {
		existing.Amount = amount
		existing.Side = side
		existing.DisplayName = displayName
	} else {
		m.current.Bets = append(m.current.Bets, Bet{
			UserID: userID, DisplayName: displayName, Amount: amount, Side: side,
		})
	}
	m.snapshot(ctx)

	return PlaceResult{Replaced: replaced, NewBalance: newBal}, nil
}

// Cancel remove a aposta do usuário no round aberto e reembolsa o valor.
func (m *Manager) Cancel(ctx context.Context, userID string) (refunded int64, newBalance int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Status != StatusOpen {
		return 0, 0, ErrRoundNotOpen
	}

	idx := -1
	for i := range m.current.Bets {
		if m.current.Bets[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, ErrNoActiveBet
	}

	bet := m.current.Bets[idx]
	newBalance, err = m.ledger.AdjustBalance(ctx, userID, bet.Amount, ledger.ReasonBetCancel, bet.DisplayName)
	if err != nil {
		return 0, 0, err
	}

	m.current.Bets = append(m.current.Bets[:idx], m.current.Bets[idx+1:]...)
	m.snapshot(ctx)
	return bet.Amount, newBalance, nil
}

// CancelQueued remove a aposta enfileirada do usuário, sem efeito no saldo
// (apostas na fila nunca chegaram a ser debitadas).
func (m *Manager) CancelQueued(ctx context.Context, userID string) (QueuedBet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qb, err := m.store.DeleteQueuedBet(ctx, userID)
	if err != nil {
		return QueuedBet{}, err
	}
	return qb, nil
}

func (m *Manager) findBet(userID string) *Bet {
	if m.current == nil {
		return nil
	}
	for i := range m.current.Bets {
		if m.current.Bets[i].UserID == userID {
			return &m.current.Bets[i]
		}
	}
	return nil
}

func (m *Manager) snapshot(ctx context.Context) {
	if err := m.store.SaveSnapshot(ctx, m.current); err != nil {
		m.log.Warn("save round snapshot", zap.Error(err))
	}
}

func floorMul(amount int64, rate float64) int64 {
	return int64(math.Floor(float64(amount) * rate))
}
