package pg

import (
	"context"
	"errors"
	"fmt"

	"chart_analyst/internal/models"
	"chart_analyst/internal/modules/telegram_bot/service/pg/trade_plans"
	"chart_analyst/pkg/db"
)

// ErrHistoryDisabled: postgres не настроен.
var ErrHistoryDisabled = errors.New("plan history is disabled")

const maxRecent = 50

type Plans struct {
	db    *db.PgTxManager
	plans *trade_plans.TradePlans
}

// NewPlans instance. db может быть nil, тогда история выключена.
func NewPlans(db *db.PgTxManager) *Plans {
	return &Plans{
		db:    db,
		plans: trade_plans.New(),
	}
}

// Save in db
func (p *Plans) Save(
	ctx context.Context,
	rec models.PlanRecord,
) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Plans.Save: %w", err)
		}
	}()
	if p.db == nil {
		return ErrHistoryDisabled
	}

	return p.db.RunMaster(ctx,
		func(ctxTx context.Context, tx db.Transaction) error {
			return p.plans.Insert(ctxTx, tx, rec)
		})
}

// Recent: последние limit планов чата, новые первыми.
func (p *Plans) Recent(
	ctx context.Context,
	chatID int64,
	limit int,
) (out []models.PlanRecord, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Plans.Recent: %w", err)
		}
	}()
	if p.db == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > maxRecent {
		limit = maxRecent
	}

	return p.plans.RecentByChat(ctx, p.db.Conn(), chatID, limit)
}
