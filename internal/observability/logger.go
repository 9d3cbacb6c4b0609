package observability

import (
	"github.com/danmuck/sctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the runtime logger, tagged with app, as log.Logger.
func InitLogger(app string) zerolog.Logger {
	cfg := logging.Resolve(logging.ProfileRuntime)
	zerolog.SetGlobalLevel(cfg.Level)
	logger := logging.New(cfg).With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
