package server

type appOption func(*appConfig) error

type AppOption appOption

type appConfig struct {
	debug func(msg interface{})
}

// Debug sets a function to receive debug events from the node, its
// transport and its workers.
func Debug(fn func(msg interface{})) AppOption {
	return func(conf *appConfig) error {
		conf.debug = fn
		return nil
	}
}
