package ledger

import "time"

// Motivos registrados em cada entrada do ledger.
const (
	ReasonBet             = "bet"
	ReasonBetCancel       = "bet-cancel"
	ReasonBetChangeRefund = "bet-change-refund"
	ReasonRoundWin        = "round-win"
	ReasonRoundRefund     = "round-refund"
	ReasonRakebackClaim   = "rakeback-claim"
	ReasonGPDeposit       = "gp-deposit"
	ReasonGPWithdraw      = "gp-withdraw"
	ReasonCryptoDeposit   = "crypto-deposit"
	ReasonCryptoWithdraw  = "crypto-withdrawal"
	ReasonAdminAddGP      = "admin-add-gp"
)

// Status de um pagamento cripto (depósito via invoice).
const (
	PaymentPending    = "pending"
	PaymentConfirming = "confirming"
	PaymentCompleted  = "completed"
	PaymentExpired    = "expired"
	PaymentFailed     = "failed"
)

// Status de um saque cripto.
const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalFailed     = "failed"
)

// User é o registro persistido de um usuário do engine.
type User struct {
	ID                string
	DisplayName       string
	Balance           int64
	RakebackUnclaimed int64
	CreatedAt         time.Time
}

// Entry é uma linha imutável do ledger, uma por mutação de saldo.
type Entry struct {
	ID        string
	UserID    string
	Delta     int64
	Reason    string
	CreatedAt time.Time
}

// BetOutcome registra o desfecho de uma aposta liquidada.
type BetOutcome struct {
	UserID      string
	DisplayName string
	RoundID     string
	Side        string
	Amount      int64
	Outcome     string // "win" | "loss" | "refund"
	Payout      int64
}

// Stats agrega o estado global de streaks e o histórico dos últimos 50 rounds.
type Stats struct {
	RedStreak   int
	BlueStreak  int
	LastWinner  string
	LastWinners []string // no máximo 50, mais antigo primeiro
}

// CryptoPayment é um depósito via gateway, criado como pending na emissão do invoice.
type CryptoPayment struct {
	TxnID       string
	UserID      string
	AmountUSD   float64
	AmountGP    int64
	Currency    string
	WalletHash  string
	InvoiceURL  string
	Status      string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// CryptoWithdrawal é um saque via gateway. O débito no ledger acontece junto
// com a criação do registro e nunca é revertido automaticamente.
type CryptoWithdrawal struct {
	WithdrawalID string
	UserID       string
	AmountGP     int64
	AmountUSD    float64
	Currency     string
	Address      string
	Status       string
	TxnHash      string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}
