// Package gpamount converte quantias de GP entre a forma numérica e as
// abreviações usadas pelos jogadores ("1.5m", "250k", "2b").
package gpamount

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var amountRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([kmb])?$`)

// Parse interpreta uma quantia com sufixo opcional k/m/b.
// Retorna 0 e false para entradas inválidas ou não positivas.
func Parse(input string) (int64, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || !isFinite(value) || value <= 0 {
		return 0, false
	}

	factor := 1.0
	switch m[2] {
	case "k":
		factor = 1_000
	case "m":
		factor = 1_000_000
	case "b":
		factor = 1_000_000_000
	}

	amount := int64(math.Floor(value * factor))
	if amount <= 0 {
		return 0, false
	}
	return amount, true
}

// FormatShort abrevia uma quantia para exibição ("1.5m", "250k").
func FormatShort(amount int64) string {
	switch {
	case amount >= 1_000_000_000:
		return trimUnit(float64(amount)/1_000_000_000) + "b"
	case amount >= 1_000_000:
		return trimUnit(float64(amount)/1_000_000) + "m"
	case amount >= 1_000:
		return trimUnit(float64(amount)/1_000) + "k"
	}
	return strconv.FormatInt(amount, 10)
}

// FormatFull combina a forma abreviada com o valor exato em GP.
func FormatFull(amount int64) string {
	return fmt.Sprintf("%s (%d GP)", FormatShort(amount), amount)
}

func trimUnit(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
