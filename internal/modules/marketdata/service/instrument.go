package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"chart_analyst/internal/models"
)

// код OKX для несуществующего instId
const okxCodeNoInstrument = "51001"

type instrumentsResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID   string `json:"instId"`
		InstType string `json:"instType"`
		BaseCcy  string `json:"baseCcy"`
		QuoteCcy string `json:"quoteCcy"`
		Uly      string `json:"uly"`
		TickSz   string `json:"tickSz"`
		State    string `json:"state"`
	} `json:"data"`
}

func instType(symbol string) string {
	if strings.HasSuffix(symbol, "-SWAP") {
		return "SWAP"
	}
	return "SPOT"
}

// Instrument проверяет, что символ есть на OKX и торгуется.
func (c *OKXClient) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	kind := instType(symbol)
	u := fmt.Sprintf("%s/api/v5/public/instruments?instType=%s&instId=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), kind, url.QueryEscape(symbol),
	)

	var resp instrumentsResponse
	if err := c.fetch(ctx, u, &resp); err != nil {
		return models.Instrument{}, err
	}
	switch {
	case resp.Code == okxCodeNoInstrument || (resp.Code == "0" && len(resp.Data) == 0):
		return models.Instrument{}, models.UnknownInstrumentError{Symbol: symbol}
	case resp.Code != "0":
		c.metrics.UpstreamFailure(sourceOKX)
		return models.Instrument{}, models.UpstreamError{
			Source: sourceOKX,
			Err:    fmt.Errorf("okx instruments error: code=%s msg=%s", resp.Code, resp.Msg),
		}
	}

	d := resp.Data[0]
	if d.State != "" && d.State != "live" {
		return models.Instrument{}, models.UnknownInstrumentError{Symbol: symbol, State: d.State}
	}

	inst := models.Instrument{
		InstID:   d.InstID,
		InstType: d.InstType,
		BaseCcy:  d.BaseCcy,
		QuoteCcy: d.QuoteCcy,
		State:    d.State,
	}
	// у swap base/quote пустые, берём из uly (BTC-USDT)
	if inst.BaseCcy == "" && d.Uly != "" {
		if parts := strings.SplitN(d.Uly, "-", 2); len(parts) == 2 {
			inst.BaseCcy, inst.QuoteCcy = parts[0], parts[1]
		}
	}
	if d.TickSz != "" {
		inst.TickSz, _ = strconv.ParseFloat(d.TickSz, 64)
	}
	return inst, nil
}
