package chat

// Strategy tells whether a result came from the primary dependency or its fallback.
type Strategy string

const (
	Primary  Strategy = "primary"
	Fallback Strategy = "fallback"
)
