package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// Pipeline runs a fixed sequence of commands.
type Pipeline struct {
	commands []Command
}

func NewPipeline(commands ...Command) *Pipeline {
	return &Pipeline{commands: commands}
}

// BuildPipeline creates every configured command up front so that bad
// configuration is reported before any image is served.
func BuildPipeline(registry *CommandRegistry, configs []CommandConfig) (*Pipeline, error) {
	commands := make([]Command, 0, len(configs))
	for i, config := range configs {
		command, err := registry.Create(config.Name, config.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to create command at index %d (%s): %w", i, config.Name, err)
		}
		commands = append(commands, command)
	}
	return NewPipeline(commands...), nil
}

// Len returns the number of commands in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.commands)
}

// With returns a new pipeline with extra commands appended.
func (p *Pipeline) With(commands ...Command) *Pipeline {
	combined := make([]Command, 0, len(p.commands)+len(commands))
	combined = append(combined, p.commands...)
	combined = append(combined, commands...)
	return NewPipeline(combined...)
}

// Execute applies all commands in order. The input slice is never modified
// by the pipeline itself.
func (p *Pipeline) Execute(imageData []byte) ([]byte, error) {
	if len(p.commands) == 0 {
		return imageData, nil
	}

	start := time.Now()
	current := imageData
	for idx, command := range p.commands {
		processed, err := command.Execute(current)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err,
				"input_size_bytes", len(current))
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}
		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"input_size_bytes", len(current),
			"output_size_bytes", len(processed))
		current = processed
	}

	slog.Debug("image pipeline completed",
		"command_count", len(p.commands),
		"duration_ms", time.Since(start).Milliseconds(),
		"final_size_bytes", len(current))
	return current, nil
}
