package config

import (
	"go.uber.org/fx"
)

// Module отдаёт *Config из configs/$CONFIG_FILE и env.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
