package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRenderID  = "render_id"
	FieldItemID    = "item_id"
	FieldItemType  = "item_type"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media fields
	FieldCodec  = "codec"
	FieldFPS    = "fps"
	FieldFrames = "frames"
	FieldSource = "src"

	// Render infrastructure fields
	FieldBucket   = "bucket"
	FieldFunction = "function"
	FieldSite     = "site"
	FieldServeURL = "serve_url"

	// State fields
	FieldStatus   = "status"
	FieldProgress = "progress"
)
