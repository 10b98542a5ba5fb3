package dto

import "time"

type StatusResponse struct {
	Status string `json:"status"`
}

type RoundOpenedResponse struct {
	RoundID  string    `json:"roundId"`
	ClosesAt time.Time `json:"closesAt"`
	Replayed int       `json:"replayedBets"`
	Dropped  int       `json:"droppedBets"`
}

type SettledBetResponse struct {
	UserID     string `json:"userId"`
	Side       string `json:"side"`
	Amount     int64  `json:"amount"`
	Outcome    string `json:"outcome"`
	Payout     int64  `json:"payout"`
	NewBalance int64  `json:"newBalance"`
}

type RoundResultResponse struct {
	RoundID  string               `json:"roundId"`
	Winner   string               `json:"winner"`
	TotalPot int64                `json:"totalPot"`
	Bets     []SettledBetResponse `json:"bets"`
	Ignored  bool                 `json:"ignored,omitempty"`
}

type PlaceBetResponse struct {
	Queued     bool   `json:"queued"`
	Replaced   bool   `json:"replaced"`
	Amount     int64  `json:"amount"`
	Side       string `json:"side"`
	NewBalance int64  `json:"newBalance,omitempty"`
}

type CancelBetResponse struct {
	Refunded   int64 `json:"refunded"`
	NewBalance int64 `json:"newBalance"`
	WasQueued  bool  `json:"wasQueued"`
}

type ClaimRakebackResponse struct {
	Claimed    int64 `json:"claimed"`
	NewBalance int64 `json:"newBalance"`
}

type BalanceResponse struct {
	UserID            string `json:"userId"`
	Balance           int64  `json:"balance"`
	BalanceShort      string `json:"balanceShort"`
	RakebackUnclaimed int64  `json:"rakebackUnclaimed"`
}

type BetViewResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Amount      int64  `json:"amount"`
	Side        string `json:"side"`
}

type RoundViewResponse struct {
	RoundID  string            `json:"roundId"`
	Red      string            `json:"red"`
	Blue     string            `json:"blue"`
	Status   string            `json:"status"`
	ClosesAt time.Time         `json:"closesAt"`
	TotalPot int64             `json:"totalPot"`
	Bets     []BetViewResponse `json:"bets"`
}

type StatsResponse struct {
	RedStreak   int      `json:"redStreak"`
	BlueStreak  int      `json:"blueStreak"`
	LastWinner  string   `json:"lastWinner"`
	LastWinners []string `json:"lastWinners"`
}

type CryptoDepositResponse struct {
	TxnID       string  `json:"txnId"`
	InvoiceURL  string  `json:"invoiceUrl"`
	AmountUSD   float64 `json:"amountUsd"`
	EstimatedGP int64   `json:"estimatedGp"`
	WalletHash  string  `json:"walletHash,omitempty"`
	PayCurrency string  `json:"payCurrency,omitempty"`
	PayAmount   string  `json:"payAmount,omitempty"`
}

type CryptoPaymentView struct {
	TxnID     string    `json:"txnId"`
	AmountUSD float64   `json:"amountUsd"`
	AmountGP  int64     `json:"amountGp"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type CryptoWithdrawalView struct {
	WithdrawalID string    `json:"withdrawalId"`
	UserID       string    `json:"userId"`
	AmountGP     int64     `json:"amountGp"`
	AmountUSD    float64   `json:"amountUsd"`
	Currency     string    `json:"currency"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CryptoWithdrawResponse struct {
	WithdrawalID string `json:"withdrawalId"`
	Status       string `json:"status"` // processing | failed (failed = remediação manual)
	RequiredGP   int64  `json:"requiredGp"`
	NewBalance   int64  `json:"newBalance"`
	PayoutRef    string `json:"payoutRef,omitempty"`
}
