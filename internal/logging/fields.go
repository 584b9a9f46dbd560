package logging

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldCategory  = "category"
	FieldEntryID   = "entry_id"
	FieldKind      = "kind"
	FieldAmountMg  = "amount_mg"
	FieldDay       = "day"
	FieldKey       = "key"
	FieldCount     = "count"
	FieldBackend   = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentStore   = "store"
	ComponentStorage = "storage"
	ComponentForm    = "form"
	ComponentChart   = "chart"
	ComponentEvents  = "events"
	ComponentSheets  = "sheets"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpLoad   = "load"
	OpClear  = "clear"
	OpSync   = "sync"
)
