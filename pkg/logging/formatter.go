/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Console formatters for stdfkit. CustomFormatter prints colored, sorted
key=value lines; DecodeFormatter adds an event tag per decode stage and renders
offsets, yields and durations the way test engineers read them.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter provides structured, optionally colored output
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
}

// Format formats a log entry
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.render(entry, "", f.formatValue), nil
}

func (f *CustomFormatter) render(entry *logrus.Entry, prefix string, value func(string, interface{}) string) []byte {
	var output strings.Builder

	if f.Timestamp {
		output.WriteString(f.paint(36, entry.Time.Format("2006-01-02 15:04:05.000")))
		output.WriteString(" ")
	}

	level := strings.ToUpper(entry.Level.String())
	output.WriteString(f.paint(f.getLevelColor(entry.Level), level))
	output.WriteString(" ")

	if prefix != "" {
		output.WriteString(f.paint(35, "["+prefix+"]"))
		output.WriteString(" ")
	}

	if f.Caller && entry.HasCaller() {
		output.WriteString(f.paint(33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)))
		output.WriteString(" ")
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data, value))
	}

	output.WriteString("\n")
	return []byte(output.String())
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// getLevelColor returns the ANSI color code for a log level
func (f *CustomFormatter) getLevelColor(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37 // White
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	default:
		return 35 // Magenta
	}
}

// formatFields renders fields as key=value pairs in key order
func (f *CustomFormatter) formatFields(fields logrus.Fields, value func(string, interface{}) string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		v := value(key, fields[key])
		if f.Colors {
			parts = append(parts, fmt.Sprintf("\033[34m%s\033[0m=\033[32m%s\033[0m", key, v))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", key, v))
		}
	}
	return strings.Join(parts, " ")
}

// formatValue formats a field value
func (f *CustomFormatter) formatValue(_ string, value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case string:
		if len(v) > 50 {
			return fmt.Sprintf("%s...", v[:50])
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// DecodeFormatter tags entries with the decode stage they belong to
type DecodeFormatter struct {
	CustomFormatter
}

// Format formats decode log entries
func (f *DecodeFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return f.render(entry, f.getDecodePrefix(entry.Message), f.formatDecodeValue), nil
}

// getDecodePrefix returns a tag based on the log message
func (f *DecodeFormatter) getDecodePrefix(message string) string {
	switch {
	case strings.HasPrefix(message, "Decode started"), strings.HasPrefix(message, "Decode finished"):
		return "DECODE"
	case strings.HasPrefix(message, "Decode summary"):
		return "SUMMARY"
	case strings.HasPrefix(message, "Record warning"):
		return "RECORD"
	case strings.HasPrefix(message, "Skipping"):
		return "SKIP"
	case strings.Contains(message, "cross-validation"):
		return "XVAL"
	case strings.HasPrefix(message, "Export"):
		return "EXPORT"
	default:
		return ""
	}
}

// formatDecodeValue formats decode-specific field values
func (f *DecodeFormatter) formatDecodeValue(key string, value interface{}) string {
	switch key {
	case "offset":
		if i, ok := value.(int); ok {
			return fmt.Sprintf("0x%06x", i)
		}
	case "yield":
		if y, ok := value.(float64); ok {
			return fmt.Sprintf("%.2f%%", y)
		}
	case "bytes":
		if n, ok := value.(int64); ok {
			return humanBytes(n)
		}
		if n, ok := value.(int); ok {
			return humanBytes(int64(n))
		}
	case "paths":
		if p, ok := value.([]string); ok {
			return strings.Join(p, ",")
		}
	}
	return f.formatValue(key, value)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
