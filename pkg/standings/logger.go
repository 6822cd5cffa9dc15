package standings

import (
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// badgerLogger forwards badger's internal messages to zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

// NewLogger adapts logger for use as Config.Logger. Badger's info and debug
// chatter is logged at debug level.
func NewLogger(logger zerolog.Logger) badger.Logger {
	return badgerLogger{log: logger.With().Str("component", "badger").Logger()}
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), args...)
}
