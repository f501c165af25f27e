package models

import "fmt"

// Instrument: торгуемый инструмент OKX (spot или swap).
type Instrument struct {
	InstID   string
	InstType string
	BaseCcy  string
	QuoteCcy string
	TickSz   float64
	State    string
}

// UnknownInstrumentError: биржа не знает символ или он не торгуется.
type UnknownInstrumentError struct {
	Symbol string
	State  string
}

func (e UnknownInstrumentError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("instrument %s is not live: state=%s", e.Symbol, e.State)
	}
	return fmt.Sprintf("instrument %s not found", e.Symbol)
}
