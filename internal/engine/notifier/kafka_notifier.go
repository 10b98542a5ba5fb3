// Package notifier publica obrigações de notificação como eventos Kafka.
// A entrega é fire-and-forget: falha aqui nunca desfaz uma mutação de ledger
// que já aconteceu.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/pkg/contracts/events"
)

type KafkaNotifier struct {
	Log          *zap.Logger
	UserWriter   *kafka.Writer
	RoundWriter  *kafka.Writer
	WriteTimeout time.Duration
}

func New(log *zap.Logger, userWriter, roundWriter *kafka.Writer) *KafkaNotifier {
	return &KafkaNotifier{
		Log:          log,
		UserWriter:   userWriter,
		RoundWriter:  roundWriter,
		WriteTimeout: 2 * time.Second,
	}
}

// NotifyUser publica uma mensagem destinada ao usuário. Erros são só logados.
func (n *KafkaNotifier) NotifyUser(ctx context.Context, userID, kind, message string) {
	ev := events.UserNotification{
		UserID:   userID,
		Kind:     kind,
		Message:  message,
		TsUnixMs: time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(ev)

	wctx, cancel := context.WithTimeout(ctx, n.WriteTimeout)
	defer cancel()
	if err := n.UserWriter.WriteMessages(wctx, kafka.Message{Key: []byte(userID), Value: b}); err != nil {
		n.Log.Warn("notify user", zap.String("userId", userID), zap.String("kind", kind), zap.Error(err))
	}
}

// PublishRoundSettled publica o resumo de um round liquidado. Erros são só logados.
func (n *KafkaNotifier) PublishRoundSettled(ctx context.Context, ev events.RoundSettled) {
	ev.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(ev)

	wctx, cancel := context.WithTimeout(ctx, n.WriteTimeout)
	defer cancel()
	if err := n.RoundWriter.WriteMessages(wctx, kafka.Message{Key: []byte(ev.RoundID), Value: b}); err != nil {
		n.Log.Warn("publish round settled", zap.String("roundId", ev.RoundID), zap.Error(err))
	}
}
