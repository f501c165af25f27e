package models

import (
	"fmt"
	"strings"
)

// InsufficientDataError: ряд короче, чем требуют окна индикаторов.
type InsufficientDataError struct {
	Required  int
	Available int
}

func (e InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need %d bars, have %d", e.Required, e.Available)
}

// RenderError: график собрать не удалось, буфер не отдаётся.
type RenderError struct {
	Reason string
	Err    error
}

func (e RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render chart: %s: %v", e.Reason, e.Err)
	}
	return "render chart: " + e.Reason
}

func (e RenderError) Unwrap() error { return e.Err }

// UpstreamError: сбой внешнего поставщика (биржа, AI).
type UpstreamError struct {
	Source string
	Err    error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream: %v", e.Source, e.Err)
}

func (e UpstreamError) Unwrap() error { return e.Err }

// PrecisionError: стоп или тейк совпадают со входом после округления до Digits знаков.
type PrecisionError struct {
	Entry  string
	Digits int
}

func (e PrecisionError) Error() string {
	return fmt.Sprintf("risk distance for entry %s is below %d-digit precision", e.Entry, e.Digits)
}

// MalformedResponseError: в ответе AI нет обязательных тегов.
type MalformedResponseError struct {
	Missing []string
}

func (e MalformedResponseError) Error() string {
	return "malformed response: missing " + strings.Join(e.Missing, ", ")
}
