package dto

// RoundCreatedRequest anuncia um novo round de duelo.
type RoundCreatedRequest struct {
	RoundID string `json:"roundId"`
	Red     string `json:"red"`
	Blue    string `json:"blue"`
}

// RoundResultRequest entrega o desfecho de um round: red, blue ou draw.
type RoundResultRequest struct {
	RoundID string `json:"roundId"`
	Winner  string `json:"winner"`
}

// PlaceBetRequest coloca ou substitui a aposta do usuário.
// Amount aceita sufixos k/m/b (ex: "500k", "2.5m").
type PlaceBetRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Amount      string `json:"amount"`
	Side        string `json:"side"`
}

type CancelBetRequest struct {
	UserID string `json:"userId"`
}

type ClaimRakebackRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// BankRequest cobre depósito, saque e consulta de saldo do banco in-game.
type BankRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Amount      string `json:"amount,omitempty"` // aceita sufixos k/m/b
}

type LinkRSNRequest struct {
	UserID string `json:"userId"`
	RSN    string `json:"rsn"`
}

type CryptoDepositRequest struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	AmountUSD   float64 `json:"amountUsd"`
}

type CryptoWithdrawRequest struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Currency    string  `json:"currency"` // BTC | USDT | LTC
	Address     string  `json:"address"`
	AmountUSD   float64 `json:"amountUsd"`
}
