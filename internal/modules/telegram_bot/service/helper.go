package service

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// price: до 5 знаков без хвостовых нулей (101.5, 0.00042).
func price(v float64) string {
	return decimal.NewFromFloat(v).Round(5).String()
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// rr: множитель 3 -> "3", 2.5 -> "2.5".
func rr(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// splitArgs режет аргументы команды по пробельным символам. Запятая остаётся: "risk=0,5".
func splitArgs(s string) []string {
	return strings.Fields(s)
}

// escapeMarkdown для legacy Markdown: экранируем только _ * ` [
func escapeMarkdown(s string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(s)
}

func isCancel(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "отмена", "cancel", "/cancel":
		return true
	}
	return false
}
