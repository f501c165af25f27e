package trade_plans

import (
	"context"
	"fmt"

	"chart_analyst/internal/models"
	"chart_analyst/internal/modules/telegram_bot/service/pg/trade_plans/sql"
)

// TradePlans implement db store
type TradePlans struct {
	sql *sql.Queries
}

// New instance
func New() *TradePlans {
	return &TradePlans{
		sql: sql.New(),
	}
}

func (p *TradePlans) Insert(ctx context.Context, tx sql.DBTX, rec models.PlanRecord) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("TradePlans.Insert: %w", err)
		}
	}()

	return p.sql.Insert(ctx, tx, &sql.InsertParams{
		ID:         rec.ID,
		ChatID:     rec.ChatID,
		Symbol:     rec.Symbol,
		Timeframe:  rec.Timeframe,
		Trend:      string(rec.Trend),
		Action:     string(rec.Action),
		Entry:      rec.Entry,
		StopLoss:   rec.StopLoss,
		TakeProfit: rec.TakeProfit,
		Rsi:        rec.RSI,
		Band:       string(rec.Band),
		CreatedAt:  rec.CreatedAt,
	})
}

func (p *TradePlans) RecentByChat(ctx context.Context, tx sql.DBTX, chatID int64, limit int) (out []models.PlanRecord, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("TradePlans.RecentByChat: %w", err)
		}
	}()

	rows, err := p.sql.RecentByChat(ctx, tx, &sql.RecentByChatParams{
		ChatID: chatID,
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, err
	}

	out = make([]models.PlanRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PlanRecord{
			ID:         r.ID,
			ChatID:     r.ChatID,
			Symbol:     r.Symbol,
			Timeframe:  r.Timeframe,
			Trend:      models.Trend(r.Trend),
			Action:     models.Action(r.Action),
			Entry:      r.Entry,
			StopLoss:   r.StopLoss,
			TakeProfit: r.TakeProfit,
			RSI:        r.Rsi,
			Band:       models.Band(r.Band),
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}
