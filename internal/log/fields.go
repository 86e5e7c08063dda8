package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldBudgetID   = "budget_id"
	FieldEndpoint   = "endpoint"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldAttempt    = "attempt"
	FieldAttempts   = "max_attempts"
	FieldDelay      = "delay"
	FieldProgress   = "progress"
	FieldRows       = "rows"
	FieldFile       = "file"
	FieldFileKind   = "file_kind"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorCode  = "error_code"
	FieldOperation  = "operation"
	FieldPublisher  = "publisher"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentSGO      = "sgo"
	ComponentEngine   = "engine"
	ComponentReport   = "report"
	ComponentPipeline = "pipeline"
	ComponentPublish  = "publish"
	ComponentAMQP     = "amqp"
	ComponentSheets   = "sheets"
	ComponentBlob     = "blob"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpJoin      = "join"
	OpAggregate = "aggregate"
	OpWrite     = "write"
	OpPublish   = "publish"
	OpUpload    = "upload"
	OpValidate  = "validate"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBudget adds the budget id
func (f LogFields) WithBudget(id string) LogFields {
	f[FieldBudgetID] = id
	return f
}

// WithPublisher adds the publisher name
func (f LogFields) WithPublisher(name string) LogFields {
	f[FieldPublisher] = name
	return f
}

// WithError adds the error message and, when the error carries a known
// kind, its stable code.
func (f LogFields) WithError(err error, code string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorCode] = code
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// WithFile adds report file fields
func (f LogFields) WithFile(kind, path string, rows int) LogFields {
	f[FieldFileKind] = kind
	f[FieldFile] = path
	f[FieldRows] = rows
	return f
}

// ToSlice converts LogFields to a slice for slog. Keys are emitted in
// sorted order so log lines are stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
