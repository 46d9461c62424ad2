package routing

// Dropped is a debug event for a message an access control denied.
type Dropped struct {
	Address   Address
	Direction string
	Onward    string
}

// Undeliverable is a debug event for a message that failed routing.
type Undeliverable struct {
	From   Address
	Onward string
	Error  string
}

// HandlerFailed is a debug event for a worker handler returning an
// error. The message is considered consumed.
type HandlerFailed struct {
	Address Address
	Error   string
}

type WorkerStarted struct {
	Address Address
}

type WorkerStopped struct {
	Address Address
}
