package observability

import (
	"sync"

	"github.com/danmuck/netstring/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	initOnce  sync.Once
	appLogger zerolog.Logger
)

// InitLogger configures runtime logging and tags the global logger with app.
// Only the first call has an effect; later calls return the same logger.
func InitLogger(app string) zerolog.Logger {
	initOnce.Do(func() {
		logging.ConfigureRuntime()
		appLogger = log.Logger.With().Str("app", app).Logger()
		log.Logger = appLogger
	})
	return appLogger
}
