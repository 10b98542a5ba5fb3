package events

// Evento emitido pelo engine após liquidar um round.
type RoundSettled struct {
	RoundID  string        `json:"round_id"`
	Winner   string        `json:"winner"` // "red" | "blue" | "draw"
	TotalPot int64         `json:"total_pot"`
	Winners  []RoundPayout `json:"winners"`
	TsUnixMs int64         `json:"ts_unix_ms"`
}

type RoundPayout struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Payout int64  `json:"payout"`
}
