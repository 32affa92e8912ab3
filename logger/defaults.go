package logger

import (
	"fmt"
	"log"
	"os"
	"regexp"
)

// DefaultLogger writes to the standard library logger, gated by the
// DEBUG and SAFE_LOGS environment variables.
type DefaultLogger struct {
	prefix string
}

var Default = &DefaultLogger{}

func cleanString(text string) string {
	urlRegex := `[a-zA-Z][a-zA-Z0-9+.-]*:\/\/[a-zA-Z0-9+%/.\-:_?&=#@+]+`
	re := regexp.MustCompile(urlRegex)

	safeString := re.ReplaceAllString(text, "[redacted url]")
	return safeString
}

func safeLog(format string) string {
	safeLogs := os.Getenv("SAFE_LOGS") == "true"
	if safeLogs {
		return cleanString(format)
	}
	return format
}

func safeLogf(format string, v ...any) string {
	safeLogs := os.Getenv("SAFE_LOGS") == "true"
	safeString := fmt.Sprintf(format, v...)
	if safeLogs {
		return cleanString(safeString)
	}
	return safeString
}

func (l *DefaultLogger) tag(format string) string {
	if l.prefix == "" {
		return format
	}
	return fmt.Sprintf("[%s] %s", l.prefix, format)
}

// With returns a logger that tags every line with streamID, so logs
// from a single Supervisor's lane stay attributable when many streams
// are being polled concurrently.
func (l *DefaultLogger) With(streamID string) Logger {
	return &DefaultLogger{prefix: streamID}
}

func (l *DefaultLogger) Log(format string) {
	log.Println(safeLog(l.tag("[INFO] " + format)))
}

func (l *DefaultLogger) Logf(format string, v ...any) {
	log.Println(safeLogf("[INFO] %s", l.tag(fmt.Sprintf(format, v...))))
}

func (l *DefaultLogger) Debug(format string) {
	if os.Getenv("DEBUG") == "true" {
		log.Println(safeLog(l.tag("[DEBUG] " + format)))
	}
}

func (l *DefaultLogger) Debugf(format string, v ...any) {
	if os.Getenv("DEBUG") == "true" {
		log.Println(safeLogf("[DEBUG] %s", l.tag(fmt.Sprintf(format, v...))))
	}
}

func (l *DefaultLogger) Error(format string) {
	log.Println(safeLog(l.tag("[ERROR] " + format)))
}

func (l *DefaultLogger) Errorf(format string, v ...any) {
	log.Println(safeLogf("[ERROR] %s", l.tag(fmt.Sprintf(format, v...))))
}

func (l *DefaultLogger) Warn(format string) {
	log.Println(safeLog(l.tag("[WARN] " + format)))
}

func (l *DefaultLogger) Warnf(format string, v ...any) {
	log.Println(safeLogf("[WARN] %s", l.tag(fmt.Sprintf(format, v...))))
}

func (l *DefaultLogger) Fatal(format string) {
	log.Fatal(safeLog(l.tag("[FATAL] " + format)))
}

func (l *DefaultLogger) Fatalf(format string, v ...any) {
	log.Fatal(safeLogf("[FATAL] %s", l.tag(fmt.Sprintf(format, v...))))
}
