package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// bodyLogWriter copies JSON response bodies into a buffer.
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	if isJSON(w.Header().Get("Content-Type")) {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w bodyLogWriter) WriteString(s string) (int, error) {
	if isJSON(w.Header().Get("Content-Type")) {
		w.body.WriteString(s)
	}
	return w.ResponseWriter.WriteString(s)
}

// RequestLogger logs every request. Bodies are only captured for JSON, never
// for uploads, downloads or event streams.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var requestBody []byte
		if c.Request.Body != nil && isJSON(c.GetHeader("Content-Type")) {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if len(requestBody) > 0 {
			fields = append(fields, "requestBody", string(requestBody))
		}
		if blw.body.Len() > 0 {
			fields = append(fields, "responseBody", blw.body.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), gin.MIMEJSON)
}
