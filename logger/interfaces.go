package logger

// Logger is the leveled logging contract used throughout hlswatch.
// Components depend on this interface, never on the concrete
// implementation, so tests can inject a recording logger.
type Logger interface {
	Log(format string)
	Logf(format string, v ...any)

	Warn(format string)
	Warnf(format string, v ...any)

	Debug(format string)
	Debugf(format string, v ...any)

	Error(format string)
	Errorf(format string, v ...any)

	Fatal(format string)
	Fatalf(format string, v ...any)

	// With returns a Logger that prefixes every message with the given
	// stream id, so logs from a Supervisor's lane are attributable
	// without threading the id through every call site.
	With(streamID string) Logger
}
