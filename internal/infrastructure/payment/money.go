package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Monedas sin decimales: el proveedor las expresa en unidades enteras.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

func currencyExp(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// toMinorUnits 12.50 NZD -> 1250.
func toMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(currencyExp(currency)).Round(0).IntPart()
}

// fromMinorUnits 1250 -> 12.50 NZD.
func fromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -currencyExp(currency))
}

// formatAmount valor decimal como string con la precisión de la moneda ("12.50", "1200").
func formatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(currencyExp(currency))
}
