package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by every component.
const (
	FieldRunID  = "run_id"
	FieldState  = "state"
	FieldJobID  = "job_id"
	FieldSource = "source"

	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
)

// StringField is a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields.
// Whitespace is trimmed and entries with an empty key or value are dropped.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op one.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}

	if len(fields) == 0 {
		return l
	}

	return l.With(fields...)
}

// PostingFields identify a posting in log entries.
func PostingFields(id, source string) []zap.Field {
	return StringFields(
		StringField{Key: FieldJobID, Value: id},
		StringField{Key: FieldSource, Value: source},
	)
}

// WithPosting attaches the posting fields to the logger.
func WithPosting(l *zap.Logger, id, source string) *zap.Logger {
	return WithFields(l, PostingFields(id, source)...)
}

// AIFields describe the language model provider and model.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithAI attaches the provider and model fields to the logger.
func WithAI(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, AIFields(provider, model)...)
}
