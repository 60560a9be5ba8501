package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a new slog.Logger writing text to stderr with the specified logging level
// level can be: "info", "debug", "error"
// Default is "info"
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, "text", level)
}

// NewJSON creates a new slog.Logger with JSON output on stderr
func NewJSON(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, "json", level)
}

// NewWithWriter creates a logger for format "text" or "json" writing to w.
// Stdout stays free for command output.
func NewWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to info
	}
}

// TruncateDataURI shortens a base64 data URI to its header and the first
// maxLength payload characters.
func TruncateDataURI(s string, maxLength int) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	header, payload, found := strings.Cut(s, ",")
	if !found || len(payload) <= maxLength {
		return s
	}
	return fmt.Sprintf("%s,%s... [truncated %d chars]", header, payload[:maxLength], len(payload)-maxLength)
}

// TruncateLongFields truncates long fields in rendered message JSON for logging purposes
// This prevents base64 image payloads from cluttering logs
func TruncateLongFields(body string, maxFieldLength int) string {
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body // Return as-is if not valid JSON
	}

	data = truncateValue(data, maxFieldLength)

	truncated, err := json.Marshal(data)
	if err != nil {
		return body // Return original if marshaling fails
	}

	return string(truncated)
}

// truncateValue recursively truncates long string values in a map or slice
func truncateValue(v interface{}, maxLength int) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for key, value := range val {
			str, ok := value.(string)
			if !ok {
				val[key] = truncateValue(value, maxLength)
				continue
			}
			switch {
			case strings.HasPrefix(str, "data:"):
				val[key] = TruncateDataURI(str, 50)
			case key == "data" && len(str) > 50:
				// base64 image payloads
				val[key] = fmt.Sprintf("%s... [truncated %d chars]", str[:50], len(str)-50)
			case len(str) > maxLength:
				val[key] = str[:maxLength] + "... [truncated]"
			}
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = truncateValue(item, maxLength)
		}
		return val
	default:
		return v
	}
}
