package middleware

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// queryTokens are query parameters that carry credentials
var queryTokens = []string{"token", "access_token"}

// AccessLog is gin's request logger with credentials removed from the
// logged query string. The websocket handshake sends its JWT as ?token=.
func AccessLog() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{Formatter: accessLogFormat})
}

func accessLogFormat(param gin.LogFormatterParams) string {
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		param.TimeStamp.Format("2006/01/02 - 15:04:05"),
		param.StatusCode,
		param.Latency,
		param.ClientIP,
		param.Method,
		redactQuery(param.Path),
		param.ErrorMessage,
	)
}

func redactQuery(path string) string {
	base, rawQuery, found := strings.Cut(path, "?")
	if !found {
		return path
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return base
	}
	for _, key := range queryTokens {
		if query.Has(key) {
			query.Set(key, "REDACTED")
		}
	}
	return base + "?" + query.Encode()
}
