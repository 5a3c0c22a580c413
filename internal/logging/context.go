package logging

import "context"

type contextKey int

const (
	correlationIDKey contextKey = iota
	fieldsKey
)

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// GetCorrelationID retrieves the correlation ID from context.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithLogFields returns a new context whose log entries carry fields in
// addition to any the context already had.
func WithLogFields(ctx context.Context, fields Fields) context.Context {
	return context.WithValue(ctx, fieldsKey, contextFields(ctx).merge(fields))
}

// WithScript tags entries logged with the returned context with the script
// they concern.
func WithScript(ctx context.Context, id int64, name string) context.Context {
	fields := Fields{"script_id": id}
	if name != "" {
		fields["script"] = name
	}
	return WithLogFields(ctx, fields)
}

func contextFields(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey).(Fields)
	return fields
}
