package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chart_analyst/internal/analysis"
	"chart_analyst/internal/modules/config"
	"chart_analyst/internal/modules/health"
	"chart_analyst/internal/modules/marketdata"
	"chart_analyst/internal/modules/observability"
	"chart_analyst/internal/modules/postgres"
	"chart_analyst/internal/modules/scheduler"
	"chart_analyst/internal/modules/vision"

	telegram "chart_analyst/internal/modules/telegram_bot"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module(),
		observability.Module(),
		postgres.Module(),
		marketdata.Module(),
		vision.Module(),
		analysis.Module(),
		health.Module(),
		telegram.Module(),
		scheduler.Module(),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("stop: %v", err)
	}
}
