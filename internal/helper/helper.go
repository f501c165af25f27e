package helper

import (
	"strings"
	"time"
)

// NormTF приводит таймфрейм из чата к нижнему регистру: "60m"/"1H" -> "1h".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "240m", "4h":
		return "4h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

func TimeframeDuration(tf string) time.Duration {
	switch NormTF(tf) {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

var quotes = []string{"USDT", "USDC", "USD", "EUR", "BTC", "ETH"}

// NormSymbol: "btc/usdt", "BTCUSDT", "btc-usdt" -> "BTC-USDT".
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("/", "-", "_", "-", " ", "").Replace(s)
	if strings.Contains(s, "-") {
		return s
	}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s[:len(s)-len(q)] + "-" + q
		}
	}
	return s
}

// Label: подпись для графика и сообщений: "BTC/USDT 1h".
func Label(symbol, tf string) string {
	return strings.ReplaceAll(symbol, "-", "/") + " " + NormTF(tf)
}
