// Package withdraw orquestra saques cripto em duas fases: validação com
// pré-checagem da carteira do operador, depois commit (débito + registro)
// seguido da tentativa de payout externo.
package withdraw

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/noidbets/duel-bets-engine/internal/engine/gateway"
	"github.com/noidbets/duel-bets-engine/internal/engine/ledger"
	"github.com/noidbets/duel-bets-engine/pkg/gpamount"
)

var (
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrInvalidAddress      = errors.New("invalid address for currency")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWalletUnavailable   = errors.New("operator wallet unavailable for withdrawal")
)

// Formato de endereço por moeda.
var addressPatterns = map[string]*regexp.Regexp{
	"BTC":  regexp.MustCompile(`^(1|3|bc1)[a-zA-Z0-9]{25,62}$`),
	"USDT": regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`), // ERC20
	"LTC":  regexp.MustCompile(`^[LM][a-km-zA-HJ-NP-Z1-9]{26,33}$`),
}

// saldo mínimo de ETH na carteira do operador pra pagar gas de token ERC20
const minEthForGas = 0.00001

// Ledger é o subconjunto do ledger que o orquestrador consome.
type Ledger interface {
	GetOrCreateUser(ctx context.Context, userID, displayName string) (ledger.User, error)
	AdjustBalance(ctx context.Context, userID string, delta int64, reason, displayName string) (int64, error)
	RecordCryptoWithdrawal(ctx context.Context, w ledger.CryptoWithdrawal) error
	UpdateCryptoWithdrawalStatus(ctx context.Context, withdrawalID, status, txnHash string) error
}

// Gateway cobre as chamadas externas do fluxo de saque.
type Gateway interface {
	CreatePayout(ctx context.Context, currency, address string, amount float64) (gateway.Payout, error)
	WalletBalance(ctx context.Context, currency string) (gateway.WalletBalance, error)
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID, kind, message string)
}

type Config struct {
	MinUSD             float64
	MaxUSD             float64
	GPPerUSDWithdrawal float64 // cotação de saque, menos favorável que a de depósito
}

type Orchestrator struct {
	Log      *zap.Logger
	Cfg      Config
	Ledger   Ledger
	Gateway  Gateway
	Notifier Notifier
}

// Result é o desfecho de um pedido de saque que passou do commit.
type Result struct {
	WithdrawalID string
	RequiredGP   int64
	NewBalance   int64
	Status       string // processing | failed
	PayoutRef    string
}

// Request valida e executa um saque.
//
// Fase de validação: formato do endereço, limites em USD, saldo do usuário na
// cotação de saque e fundos na carteira do operador (incluindo gas pra ERC20).
// Nada foi mutado se a validação falhar.
//
// Fase de commit: o débito do GP e o registro pending são aplicados antes da
// chamada externa, e o débito NÃO é revertido se o payout falhar — o registro
// vai pra failed e vira fila de remediação manual. A política commit-then-attempt
// evita double-spend entre um payout lento e o usuário reenviar o saque.
// Nenhum lock de usuário fica retido durante a chamada externa.
func (o *Orchestrator) Request(ctx context.Context, userID, displayName, currency, address string, amountUSD float64) (Result, error) {
	pattern, ok := addressPatterns[currency]
	if !ok {
		return Result{}, ErrUnsupportedCurrency
	}
	if !isFinite(amountUSD) || amountUSD <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if amountUSD < o.Cfg.MinUSD {
		return Result{}, fmt.Errorf("%w: minimum is $%.2f", ErrInvalidAmount, o.Cfg.MinUSD)
	}
	if amountUSD > o.Cfg.MaxUSD {
		return Result{}, fmt.Errorf("%w: maximum is $%.2f", ErrInvalidAmount, o.Cfg.MaxUSD)
	}
	if !pattern.MatchString(address) {
		return Result{}, ErrInvalidAddress
	}

	requiredGP := int64(math.Ceil(amountUSD * o.Cfg.GPPerUSDWithdrawal))

	u, err := o.Ledger.GetOrCreateUser(ctx, userID, displayName)
	if err != nil {
		return Result{}, err
	}
	if u.Balance < requiredGP {
		return Result{}, fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientBalance, gpamount.FormatFull(requiredGP), gpamount.FormatFull(u.Balance))
	}

	if err := o.precheckWallet(ctx, currency, amountUSD); err != nil {
		return Result{}, err
	}

	// commit: débito + registro pending, antes de qualquer chamada externa
	newBalance, err := o.Ledger.AdjustBalance(ctx, userID, -requiredGP, ledger.ReasonCryptoWithdraw, displayName)
	if err != nil {
		return Result{}, err
	}

	withdrawalID := fmt.Sprintf("WD-%d-%s", time.Now().UnixMilli(), idSuffix(userID))
	if err := o.Ledger.RecordCryptoWithdrawal(ctx, ledger.CryptoWithdrawal{
		WithdrawalID: withdrawalID,
		UserID:       userID,
		AmountGP:     requiredGP,
		AmountUSD:    amountUSD,
		Currency:     currency,
		Address:      address,
		Status:       ledger.WithdrawalPending,
	}); err != nil {
		return Result{}, err
	}

	o.Log.Info("crypto withdrawal committed",
		zap.String("withdrawalId", withdrawalID),
		zap.String("userId", userID),
		zap.Float64("amountUsd", amountUSD),
		zap.Int64("requiredGp", requiredGP))

	res := Result{
		WithdrawalID: withdrawalID,
		RequiredGP:   requiredGP,
		NewBalance:   newBalance,
	}

	// tentativa de payout, fora de qualquer lock de usuário
	payout, err := o.Gateway.CreatePayout(ctx, currency, address, amountUSD)
	if err != nil {
		// débito mantido: o registro failed vira fila de remediação manual
		if uerr := o.Ledger.UpdateCryptoWithdrawalStatus(ctx, withdrawalID, ledger.WithdrawalFailed, ""); uerr != nil {
			o.Log.Error("mark withdrawal failed", zap.String("withdrawalId", withdrawalID), zap.Error(uerr))
		}
		o.Log.Error("payout failed, manual remediation required",
			zap.String("withdrawalId", withdrawalID),
			zap.String("userId", userID),
			zap.Error(err))

		o.Notifier.NotifyUser(ctx, userID, "withdrawal",
			fmt.Sprintf("Withdrawal %s is pending manual processing. Your GP was deducted; an operator will send $%.2f %s within 24 hours.",
				withdrawalID, amountUSD, currency))

		res.Status = ledger.WithdrawalFailed
		return res, nil
	}

	if err := o.Ledger.UpdateCryptoWithdrawalStatus(ctx, withdrawalID, ledger.WithdrawalProcessing, payout.Ref()); err != nil {
		o.Log.Error("mark withdrawal processing", zap.String("withdrawalId", withdrawalID), zap.Error(err))
	}

	o.Notifier.NotifyUser(ctx, userID, "withdrawal",
		fmt.Sprintf("Withdrawal %s submitted: $%.2f %s to %s. New balance: %s.",
			withdrawalID, amountUSD, currency, address, gpamount.FormatFull(newBalance)))

	res.Status = ledger.WithdrawalProcessing
	res.PayoutRef = payout.Ref()
	return res, nil
}

// precheckWallet confere se a carteira do operador cobre o payout antes do
// commit: saldo na moeda alvo (com folga de 1% pra moedas nativas) e, pra
// token ERC20, saldo de ETH pro gas.
func (o *Orchestrator) precheckWallet(ctx context.Context, currency string, amountUSD float64) error {
	bal, err := o.Gateway.WalletBalance(ctx, currency)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	}

	if currency == "USDT" {
		eth, err := o.Gateway.WalletBalance(ctx, "ETH")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
		}
		if eth.Float() < minEthForGas {
			return fmt.Errorf("%w: insufficient ETH for ERC20 gas", ErrWalletUnavailable)
		}
	}

	minRequired := amountUSD
	if currency != "USDT" {
		minRequired = amountUSD * 1.01
	}
	if bal.Float() < minRequired {
		return fmt.Errorf("%w: %s wallet has %.6f, need %.6f",
			ErrWalletUnavailable, currency, bal.Float(), minRequired)
	}
	return nil
}

func idSuffix(userID string) string {
	if len(userID) <= 6 {
		return userID
	}
	return userID[len(userID)-6:]
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
