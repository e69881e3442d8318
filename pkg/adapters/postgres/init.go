package postgres

import (
	"log/slog"

	"github.com/timegrid-io/timegrid/pkg/adapter"
)

func init() {
	adapter.Register("postgres", func(logger *slog.Logger) adapter.Adapter {
		return New(logger)
	})
}
