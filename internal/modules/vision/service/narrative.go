package service

import (
	"strings"

	"chart_analyst/internal/models"
)

var requiredTags = []string{"DIRECTION", "ANALYSIS", "ENTRY", "SL", "TP"}

// Narrative: разобранный ответ AI по скриншоту графика.
type Narrative struct {
	Direction    models.Trend
	RawDirection string
	Analysis     string
	Entry        string
	StopLoss     string
	TakeProfit   string
	Raw          string
}

// ParseNarrative ищет теги по порядку, без учёта регистра.
// Тег, не найденный после предыдущего, считается отсутствующим.
func ParseNarrative(text string) (Narrative, error) {
	type span struct{ start, body int }
	spans := make([]span, 0, len(requiredTags))
	var missing []string

	pos := 0
	for _, tag := range requiredTags {
		marker := "[" + tag + "]:"
		start := indexFold(text, marker, pos)
		if start < 0 {
			missing = append(missing, tag)
			continue
		}
		spans = append(spans, span{start: start, body: start + len(marker)})
		pos = start + len(marker)
	}
	if len(missing) > 0 {
		// сырой текст отдаём, чтобы показать его пользователю
		return Narrative{Raw: text}, models.MalformedResponseError{Missing: missing}
	}

	values := make([]string, len(spans))
	for i, s := range spans {
		end := len(text)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		values[i] = strings.TrimSpace(text[s.body:end])
	}

	return Narrative{
		Direction:    normDirection(values[0]),
		RawDirection: values[0],
		Analysis:     values[1],
		Entry:        values[2],
		StopLoss:     values[3],
		TakeProfit:   values[4],
		Raw:          text,
	}, nil
}

// indexFold: регистронезависимый поиск ASCII-маркера начиная с from.
func indexFold(s, marker string, from int) int {
	for i := from; i+len(marker) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

func normDirection(raw string) models.Trend {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "bullish"):
		return models.TrendBullish
	case strings.Contains(s, "bearish"):
		return models.TrendBearish
	default:
		// Neutral / Netral / Sideways
		return models.TrendSideways
	}
}

// IsErrorReply: модель отказалась разбирать картинку.
func IsErrorReply(text string) bool {
	return strings.Contains(strings.ToUpper(text), "[ERROR]")
}
