// Package deposit cria faturas de depósito cripto e registra o pagamento
// pendente pro reconciliador acompanhar.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
)

var ErrInvalidAmount = errors.New("invalid deposit amount")

// Ledger é o subconjunto do ledger que o serviço de depósito consome.
type Ledger interface {
	RecordCryptoPayment(ctx context.Context, p ledger.CryptoPayment) error
	CryptoPayment(ctx context.Context, txnID string) (ledger.CryptoPayment, error)
	UserCryptoPayments(ctx context.Context, userID string, limit int) ([]ledger.CryptoPayment, error)
}

type Gateway interface {
	CreateInvoice(ctx context.Context, orderID string, amountUSD float64, orderName string) (gateway.Invoice, error)
	InvoiceDetails(ctx context.Context, txnID string) (gateway.Invoice, error)
}

type Config struct {
	MinUSD          float64
	MaxUSD          float64
	GPPerUSDDeposit float64
}

type Service struct {
	Log     *zap.Logger
	Cfg     Config
	Ledger  Ledger
	Gateway Gateway
}

// Created é a fatura pronta pra apresentar ao usuário.
type Created struct {
	TxnID       string
	InvoiceURL  string
	AmountUSD   float64
	EstimatedGP int64
	WalletHash  string
	PayCurrency string
	PayAmount   string
}

// Create emite uma fatura no gateway e registra o pagamento como pending.
// Nenhum GP é creditado aqui: o crédito só acontece quando o reconciliador
// confirma o pagamento no gateway.
func (s *Service) Create(ctx context.Context, userID, displayName string, amountUSD float64) (Created, error) {
	if !isFinite(amountUSD) || amountUSD <= 0 {
		return Created{}, ErrInvalidAmount
	}
	if amountUSD < s.Cfg.MinUSD {
		return Created{}, fmt.Errorf("%w: minimum is $%.2f", ErrInvalidAmount, s.Cfg.MinUSD)
	}
	if amountUSD > s.Cfg.MaxUSD {
		return Created{}, fmt.Errorf("%w: maximum is $%.2f", ErrInvalidAmount, s.Cfg.MaxUSD)
	}

	estimatedGP := int64(math.Floor(amountUSD * s.Cfg.GPPerUSDDeposit))

	orderName := "GP deposit"
	if displayName != "" {
		orderName = "GP deposit - " + displayName
	}
	inv, err := s.Gateway.CreateInvoice(ctx, userID, amountUSD, orderName)
	if err != nil {
		return Created{}, err
	}

	// detalhes com endereço/valor em cripto; falha aqui não invalida a fatura
	created := Created{
		TxnID:       inv.TxnID,
		InvoiceURL:  inv.InvoiceURL,
		AmountUSD:   amountUSD,
		EstimatedGP: estimatedGP,
	}
	if details, derr := s.Gateway.InvoiceDetails(ctx, inv.TxnID); derr == nil {
		created.WalletHash = details.WalletHash
		created.PayCurrency = details.Currency
		created.PayAmount = details.Amount
	} else {
		s.Log.Warn("invoice details unavailable", zap.String("txnId", inv.TxnID), zap.Error(derr))
	}

	if err := s.Ledger.RecordCryptoPayment(ctx, ledger.CryptoPayment{
		TxnID:      inv.TxnID,
		UserID:     userID,
		AmountUSD:  amountUSD,
		AmountGP:   estimatedGP,
		Currency:   created.PayCurrency,
		WalletHash: created.WalletHash,
		InvoiceURL: inv.InvoiceURL,
		Status:     ledger.PaymentPending,
	}); err != nil {
		return Created{}, err
	}

	s.Log.Info("crypto deposit invoice created",
		zap.String("txnId", inv.TxnID),
		zap.String("userId", userID),
		zap.Float64("amountUsd", amountUSD),
		zap.Int64("estimatedGp", estimatedGP))

	return created, nil
}

// Status retorna o estado interno do depósito. Só leitura: quem converge o
// status com o gateway e credita é o reconciliador.
func (s *Service) Status(ctx context.Context, txnID string) (ledger.CryptoPayment, error) {
	return s.Ledger.CryptoPayment(ctx, txnID)
}

// Recent lista os depósitos cripto mais recentes do usuário.
func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]ledger.CryptoPayment, error) {
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	return s.Ledger.UserCryptoPayments(ctx, userID, limit)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
