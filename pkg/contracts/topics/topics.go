package topics

const (
	// Notificações fire-and-forget para usuários (DM, painel, etc.)
	UserNotifications = "user_notifications"

	// Resultado consolidado de cada round liquidado
	RoundSettled = "round_settled"
)
