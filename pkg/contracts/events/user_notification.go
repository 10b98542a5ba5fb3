package events

// Notificação fire-and-forget destinada a um usuário.
// O consumidor (bot de chat, painel, etc.) decide como entregar.
type UserNotification struct {
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"` // "deposit-confirmed" | "withdrawal" | "queued-bet" | "round-win" | ...
	Message  string `json:"message"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
