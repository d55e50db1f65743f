package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldSessionID    = "session_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldFilename     = "filename"
	FieldSizeBytes    = "size_bytes"
	FieldRowsRead     = "rows_read"
	FieldRowsKept     = "rows_kept"
	FieldRowsDropped  = "rows_dropped"
	FieldMissingCols  = "missing_columns"
	FieldCohort       = "cohort"
	FieldTransactions = "transactions"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentUpload    = "upload"
	ComponentDashboard = "dashboard"
	ComponentSession   = "session"
	ComponentAudit     = "audit"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpUpload   = "upload"
	OpIngest   = "ingest"
	OpBuild    = "build"
	OpRecord   = "record"
	OpPublish  = "publish"
	OpReset    = "reset"
	OpRender   = "render"
	OpMigrate  = "migrate"
	OpCleanup  = "cleanup"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithUpload adds the file and row counters of an upload.
func (f LogFields) WithUpload(filename string, size int64, read, kept, dropped int) LogFields {
	f[FieldFilename] = filename
	f[FieldSizeBytes] = size
	f[FieldRowsRead] = read
	f[FieldRowsKept] = kept
	f[FieldRowsDropped] = dropped
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
