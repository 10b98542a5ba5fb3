package ledger

import (
	"context"
	"database/sql"
	"time"
)

// RecordCryptoPayment cria um depósito cripto pending atrelado ao invoice emitido
func (p *Postgres) RecordCryptoPayment(ctx context.Context, pay CryptoPayment) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := getOrCreateUserTx(ctx, tx, pay.UserID, ""); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO crypto_payments (txn_id, user_id, amount_usd, amount_gp, currency, wallet_hash, invoice_url, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,'pending')`,
		pay.TxnID, pay.UserID, pay.AmountUSD, pay.AmountGP, pay.Currency, pay.WalletHash, pay.InvoiceURL); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateCryptoPaymentStatus persiste o novo status vindo do gateway.
// Marca confirmed_at quando o pagamento completa.
func (p *Postgres) UpdateCryptoPaymentStatus(ctx context.Context, txnID, status string) error {
	var confirmedAt *time.Time
	if status == PaymentCompleted {
		now := time.Now().UTC()
		confirmedAt = &now
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE crypto_payments SET status=$1, confirmed_at=COALESCE($2, confirmed_at) WHERE txn_id=$3`,
		status, confirmedAt, txnID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CryptoPayment busca um depósito pelo txn_id do gateway
func (p *Postgres) CryptoPayment(ctx context.Context, txnID string) (CryptoPayment, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT txn_id, user_id, amount_usd, amount_gp, currency,
		       COALESCE(wallet_hash,''), COALESCE(invoice_url,''), status, created_at, confirmed_at
		FROM crypto_payments WHERE txn_id=$1`, txnID)
	return scanPayment(row)
}

// PendingCryptoPayments lista depósitos pending criados dentro da janela de lookback
func (p *Postgres) PendingCryptoPayments(ctx context.Context, lookback time.Duration) ([]CryptoPayment, error) {
	cutoff := time.Now().Add(-lookback)
	rows, err := p.db.QueryContext(ctx, `
		SELECT txn_id, user_id, amount_usd, amount_gp, currency,
		       COALESCE(wallet_hash,''), COALESCE(invoice_url,''), status, created_at, confirmed_at
		FROM crypto_payments
		WHERE status='pending' AND created_at > $1
		ORDER BY created_at DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// ExpireCryptoPaymentsBefore marca como expired os pending mais antigos que o corte.
// Retorna quantos registros foram expirados.
func (p *Postgres) ExpireCryptoPaymentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE crypto_payments SET status='expired' WHERE status='pending' AND created_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UserCryptoPayments lista os depósitos mais recentes de um usuário
func (p *Postgres) UserCryptoPayments(ctx context.Context, userID string, limit int) ([]CryptoPayment, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT txn_id, user_id, amount_usd, amount_gp, currency,
		       COALESCE(wallet_hash,''), COALESCE(invoice_url,''), status, created_at, confirmed_at
		FROM crypto_payments
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// RecordCryptoWithdrawal cria o registro de saque. O débito do saldo é feito
// pelo orquestrador na mesma sequência, antes da chamada externa.
func (p *Postgres) RecordCryptoWithdrawal(ctx context.Context, w CryptoWithdrawal) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO crypto_withdrawals (withdrawal_id, user_id, amount_gp, amount_usd, currency, address, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		w.WithdrawalID, w.UserID, w.AmountGP, w.AmountUSD, w.Currency, w.Address)
	return err
}

// UpdateCryptoWithdrawalStatus persiste status e hash externo de um saque
func (p *Postgres) UpdateCryptoWithdrawalStatus(ctx context.Context, withdrawalID, status, txnHash string) error {
	var processedAt *time.Time
	if status == WithdrawalCompleted || status == WithdrawalFailed {
		now := time.Now().UTC()
		processedAt = &now
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE crypto_withdrawals
		SET status=$1, txn_hash=COALESCE(NULLIF($2,''), txn_hash), processed_at=COALESCE($3, processed_at)
		WHERE withdrawal_id=$4`,
		status, txnHash, processedAt, withdrawalID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingCryptoWithdrawals lista saques aguardando payout ou remediação manual
func (p *Postgres) PendingCryptoWithdrawals(ctx context.Context) ([]CryptoWithdrawal, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT withdrawal_id, user_id, amount_gp, amount_usd, currency, address, status,
		       COALESCE(txn_hash,''), created_at, processed_at
		FROM crypto_withdrawals
		WHERE status IN ('pending','failed')
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CryptoWithdrawal
	for rows.Next() {
		var w CryptoWithdrawal
		var processedAt sql.NullTime
		if err := rows.Scan(&w.WithdrawalID, &w.UserID, &w.AmountGP, &w.AmountUSD, &w.Currency,
			&w.Address, &w.Status, &w.TxnHash, &w.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			t := processedAt.Time
			w.ProcessedAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (CryptoPayment, error) {
	var pay CryptoPayment
	var confirmedAt sql.NullTime
	err := row.Scan(&pay.TxnID, &pay.UserID, &pay.AmountUSD, &pay.AmountGP, &pay.Currency,
		&pay.WalletHash, &pay.InvoiceURL, &pay.Status, &pay.CreatedAt, &confirmedAt)
	if err == sql.ErrNoRows {
		return CryptoPayment{}, ErrNotFound
	}
	if err != nil {
		return CryptoPayment{}, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		pay.ConfirmedAt = &t
	}
	return pay, nil
}

func scanPayments(rows *sql.Rows) ([]CryptoPayment, error) {
	var out []CryptoPayment
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pay)
	}
	return out, rows.Err()
}
