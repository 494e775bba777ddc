package audit

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logEvent emits the structured security log line that accompanies every
// persisted audit event.
func logEvent(entry Entry) {
	logger := log.With().
		Str("audit", "security").
		Str("action", string(entry.Action)).
		Str("status", string(entry.Status)).
		Logger()

	if entry.IdentityID != nil {
		logger = logger.With().Str("identity_id", *entry.IdentityID).Logger()
	}
	if entry.IP != "" {
		logger = logger.With().Str("ip", entry.IP).Logger()
	}
	if entry.UserAgent != "" {
		logger = logger.With().Str("user_agent", entry.UserAgent).Logger()
	}

	logLine := logger.Info()
	for k, v := range entry.Metadata {
		logLine = addField(logLine, k, v)
	}
	logLine.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
