package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Postgres implementa o ledger de saldos em banco
type Postgres struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPostgres(db *sql.DB, log *zap.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

var (
	ErrNotFound = errors.New("not found")
)

// EnsureSchema cria as tabelas do engine se ainda não existirem
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT,
			balance BIGINT NOT NULL DEFAULT 0,
			rakeback_unclaimed BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			delta BIGINT NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_entries(user_id);

		CREATE TABLE IF NOT EXISTS user_rsns (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			rsn TEXT NOT NULL,
			linked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, rsn)
		);
		CREATE INDEX IF NOT EXISTS idx_rsn_lower ON user_rsns(LOWER(rsn));

		CREATE TABLE IF NOT EXISTS bet_history (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			display_name TEXT,
			round_id TEXT,
			side TEXT,
			amount BIGINT,
			outcome TEXT,
			payout BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bet_user ON bet_history(user_id);
		CREATE INDEX IF NOT EXISTS idx_bet_round ON bet_history(round_id);

		CREATE TABLE IF NOT EXISTS stats (
			id INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			red_streak INT NOT NULL DEFAULT 0,
			blue_streak INT NOT NULL DEFAULT 0,
			last_winner TEXT,
			last_winners TEXT NOT NULL DEFAULT '[]'
		);
		INSERT INTO stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

		CREATE TABLE IF NOT EXISTS crypto_payments (
			txn_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			amount_usd DOUBLE PRECISION NOT NULL,
			amount_gp BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USDT',
			wallet_hash TEXT,
			invoice_url TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			confirmed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_crypto_user ON crypto_payments(user_id);
		CREATE INDEX IF NOT EXISTS idx_crypto_status ON crypto_payments(status);

		CREATE TABLE IF NOT EXISTS crypto_withdrawals (
			withdrawal_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			amount_gp BIGINT NOT NULL,
			amount_usd DOUBLE PRECISION NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USDT',
			address TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			txn_hash TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_user ON crypto_withdrawals(user_id);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_status ON crypto_withdrawals(status);
	`)
	return err
}

// GetOrCreateUser retorna o usuário, criando com saldo zero na primeira referência.
// Atualiza o display name se mudou. Idempotente.
func (p *Postgres) GetOrCreateUser(ctx context.Context, userID, displayName string) (User, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	u, err := getOrCreateUserTx(ctx, tx, userID, displayName)
	if err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return u, nil
}

func getOrCreateUserTx(ctx context.Context, tx *sql.Tx, userID, displayName string) (User, error) {
	var u User
	var name sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT id, display_name, balance, rakeback_unclaimed, created_at FROM users WHERE id=$1 FOR UPDATE`,
		userID).Scan(&u.ID, &name, &u.Balance, &u.RakebackUnclaimed, &u.CreatedAt)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users(id, display_name) VALUES($1, NULLIF($2,''))`,
			userID, displayName); err != nil {
			return User{}, err
		}
		return User{ID: userID, DisplayName: displayName}, nil
	}
	if err != nil {
		return User{}, err
	}
	u.DisplayName = name.String

	if displayName != "" && u.DisplayName != displayName {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET display_name=$1 WHERE id=$2`, displayName, userID); err != nil {
			return User{}, err
		}
		u.DisplayName = displayName
	}
	return u, nil
}

// AdjustBalance aplica um delta ao saldo do usuário dentro de uma transação única:
// saldo novo = max(0, saldo + delta), com a entrada correspondente no ledger.
// O clamp em zero é a política herdada do sistema; quando ele de fato trunca um
// débito, o evento é logado em Warn para não mascarar overdraft em silêncio.
func (p *Postgres) AdjustBalance(ctx context.Context, userID string, delta int64, reason, displayName string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newBalance, err := p.adjustBalanceTx(ctx, tx, userID, delta, reason, displayName)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (p *Postgres) adjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, delta int64, reason, displayName string) (int64, error) {
	u, err := getOrCreateUserTx(ctx, tx, userID, displayName)
	if err != nil {
		return 0, err
	}

	newBalance := u.Balance + delta
	if newBalance < 0 {
		p.log.Warn("balance clamped to zero",
			zap.String("userId", userID),
			zap.Int64("balance", u.Balance),
			zap.Int64("delta", delta),
			zap.String("reason", reason),
		)
		newBalance = 0
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance=$1 WHERE id=$2`, newBalance, userID); err != nil {
		return 0, err
	}

	if delta != 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries(id, user_id, delta, reason) VALUES($1,$2,$3,$4)`,
			uuid.NewString(), userID, delta, reason); err != nil {
			return 0, err
		}
	}

	return newBalance, nil
}

// AddRakeback acumula rakeback no balde separado do saldo.
// Acúmulo de valor zero é no-op, não registrado.
func (p *Postgres) AddRakeback(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := getOrCreateUserTx(ctx, tx, userID, ""); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET rakeback_unclaimed = rakeback_unclaimed + $1 WHERE id=$2`,
		amount, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ClaimRakeback zera o balde de rakeback e credita o valor no saldo, atomicamente.
func (p *Postgres) ClaimRakeback(ctx context.Context, userID, displayName string) (claimed int64, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	u, err := getOrCreateUserTx(ctx, tx, userID, displayName)
	if err != nil {
		return 0, 0, err
	}

	claimed = u.RakebackUnclaimed
	if claimed <= 0 {
		return 0, u.Balance, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET rakeback_unclaimed = 0 WHERE id=$1`, userID); err != nil {
		return 0, 0, err
	}

	newBalance, err = p.adjustBalanceTx(ctx, tx, userID, claimed, ReasonRakebackClaim, displayName)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return claimed, newBalance, nil
}

// RecordBetOutcome grava o desfecho de uma aposta no histórico
func (p *Postgres) RecordBetOutcome(ctx context.Context, o BetOutcome) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bet_history (user_id, display_name, round_id, side, amount, outcome, payout)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7)`,
		o.UserID, o.DisplayName, o.RoundID, o.Side, o.Amount, o.Outcome, o.Payout)
	return err
}

// LinkRSN vincula um identificador de jogador ao usuário. Idempotente.
func (p *Postgres) LinkRSN(ctx context.Context, userID, rsn string) error {
	normalized := normalizeRSN(rsn)
	if normalized == "" {
		return ErrNotFound
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := getOrCreateUserTx(ctx, tx, userID, ""); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_rsns(user_id, rsn) VALUES($1,$2) ON CONFLICT DO NOTHING`,
		userID, normalized); err != nil {
		return err
	}
	return tx.Commit()
}

// FindUserByRSN resolve um RSN vinculado para o usuário dono.
// A comparação ignora caixa; espaços não separáveis são normalizados.
func (p *Postgres) FindUserByRSN(ctx context.Context, rsn string) (User, error) {
	normalized := normalizeRSN(rsn)
	if normalized == "" {
		return User{}, ErrNotFound
	}

	var u User
	var name sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.balance, u.rakeback_unclaimed, u.created_at
		FROM users u
		JOIN user_rsns ur ON ur.user_id = u.id
		WHERE LOWER(ur.rsn) = LOWER($1)
		LIMIT 1`, normalized).Scan(&u.ID, &name, &u.Balance, &u.RakebackUnclaimed, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.DisplayName = name.String
	return u, nil
}

func normalizeRSN(rsn string) string {
	return strings.TrimSpace(strings.ReplaceAll(rsn, " ", " "))
}
