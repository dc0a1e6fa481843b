package port

import "context"

// EngineProgressFunc is invoked synchronously by Engine.Exec with the engine's own
// completion ratio in [0, 1].
type EngineProgressFunc func(ratio float64)

// Engine is a loaded transcoding engine with a private staging namespace. Names passed
// to the file methods and referenced from Exec arguments live in that namespace.
type Engine interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error
	// Exec runs a command-style transcode and blocks until it finishes.
	Exec(ctx context.Context, args []string, onProgress EngineProgressFunc) error
}

// EngineProvider hands out the shared engine, loading it on first use.
type EngineProvider interface {
	GetEngine(ctx context.Context) (Engine, error)
}
