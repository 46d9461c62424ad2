package server

// Swept is sent after expired attributes are removed.
type Swept struct {
	Removed int
}

// SweepFailed is sent when removing expired attributes fails.
type SweepFailed struct {
	Error error
}

// Serving is sent once the node accepts connections.
type Serving struct {
	Identifier string
	Listen     string
}
