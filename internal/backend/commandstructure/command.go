// Package commandstructure turns configured command lists into pipelines that
// post-process PNG images on their way out of the store.
package commandstructure

// Command transforms encoded image bytes.
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}

// CommandFactory creates a command from configuration parameters.
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig names a registered command and its parameters.
type CommandConfig struct {
	Name   string
	Params map[string]any
}
