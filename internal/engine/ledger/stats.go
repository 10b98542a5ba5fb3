package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
)

const lastWinnersCap = 50

// Stats retorna streaks e o histórico dos últimos rounds (linha única)
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var lastWinner sql.NullString
	var winnersJSON string

	err := p.db.QueryRowContext(ctx,
		`SELECT red_streak, blue_streak, last_winner, last_winners FROM stats WHERE id=1`).
		Scan(&s.RedStreak, &s.BlueStreak, &lastWinner, &winnersJSON)
	if err != nil {
		return Stats{}, err
	}
	s.LastWinner = lastWinner.String

	if err := json.Unmarshal([]byte(winnersJSON), &s.LastWinners); err != nil {
		s.LastWinners = nil
	}
	return s, nil
}

// RecordWinnerSide atualiza streaks e o anel de últimos vencedores.
// Vencedor repetido incrementa o streak do lado; troca de lado reinicia em 1
// e zera o outro. O anel guarda no máximo os últimos 50 resultados.
func (p *Postgres) RecordWinnerSide(ctx context.Context, side string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if side != "red" && side != "blue" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE stats SET last_winner=NULL, red_streak=0, blue_streak=0 WHERE id=1`); err != nil {
			return err
		}
		return tx.Commit()
	}

	var redStreak, blueStreak int
	var lastWinner sql.NullString
	var winnersJSON string
	if err := tx.QueryRowContext(ctx,
		`SELECT red_streak, blue_streak, last_winner, last_winners FROM stats WHERE id=1 FOR UPDATE`).
		Scan(&redStreak, &blueStreak, &lastWinner, &winnersJSON); err != nil {
		return err
	}

	if lastWinner.String == side {
		if side == "red" {
			redStreak, blueStreak = redStreak+1, 0
		} else {
			blueStreak, redStreak = blueStreak+1, 0
		}
	} else {
		if side == "red" {
			redStreak, blueStreak = 1, 0
		} else {
			blueStreak, redStreak = 1, 0
		}
	}

	var winners []string
	if err := json.Unmarshal([]byte(winnersJSON), &winners); err != nil {
		winners = nil
	}
	winners = append(winners, side)
	if len(winners) > lastWinnersCap {
		winners = winners[len(winners)-lastWinnersCap:]
	}
	encoded, err := json.Marshal(winners)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE stats SET last_winner=$1, red_streak=$2, blue_streak=$3, last_winners=$4 WHERE id=1`,
		side, redStreak, blueStreak, string(encoded)); err != nil {
		return err
	}
	return tx.Commit()
}
