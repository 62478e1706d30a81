package dbtcloud

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/trouze/dbt-terraform-modules-yaml/internal/pkg/log"
)

const clientLoggerPrefix = "HTTP%s\t"

var authorizationRegexp = regexp.MustCompile(`(?i)(authorization:?\s*(?:token|bearer)?\s*)[^\s]+`)

// clientLogger is passed to resty, it removes the API token from dumped requests.
type clientLogger struct {
	logger log.Logger
	token  string
}

func (l *clientLogger) Debugf(format string, v ...any) {
	l.logWithoutSecrets("", format, v...)
}

func (l *clientLogger) Warnf(format string, v ...any) {
	l.logWithoutSecrets("-WARN", format, v...)
}

func (l *clientLogger) Errorf(format string, v ...any) {
	l.logWithoutSecrets("-ERROR", format, v...)
}

func (l *clientLogger) logWithoutSecrets(level string, format string, v ...any) {
	v = append([]any{level}, v...)
	msg := fmt.Sprintf(clientLoggerPrefix+format, v...)
	msg = authorizationRegexp.ReplaceAllString(msg, "$1*****")
	if l.token != "" {
		msg = strings.ReplaceAll(msg, l.token, "*****")
	}
	l.logger.Debug(msg)
}
