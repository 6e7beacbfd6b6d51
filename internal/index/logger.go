package index

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// badgerLogger adapts zap to badger's Logger interface.
type badgerLogger struct {
	logger *zap.Logger
}

func newBadgerLogger(logger *zap.Logger) *badgerLogger {
	return &badgerLogger{logger: logger.With(zap.String("component", "badger"))}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(message(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(message(format, args...))
}

// Infof is logged at debug level: badger is chatty on open and close.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(message(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(message(format, args...))
}

func message(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
