package numbering

import (
	"fmt"

	"github.com/erp/tradecore/internal/domain/sequence"
	"github.com/erp/tradecore/internal/infrastructure/config"
)

// AllocatorConfig converts the sequence section of the configuration.
// Configured prefixes are layered over the built-in defaults.
func AllocatorConfig(cfg config.SequenceConfig) (sequence.Config, error) {
	out := sequence.Config{
		MaxAttempts:     cfg.MaxAttempts,
		BackoffBase:     cfg.BackoffBase,
		DefaultPrefixes: make(map[sequence.Kind]string, len(sequence.DefaultPrefixes)),
		Widths:          make(map[sequence.Kind]int, len(cfg.Widths)),
	}
	for kind, prefix := range sequence.DefaultPrefixes {
		out.DefaultPrefixes[kind] = prefix
	}

	for name, prefix := range cfg.DefaultPrefixes {
		kind := sequence.Kind(name)
		if !kind.IsValid() {
			return sequence.Config{}, fmt.Errorf("sequence.default_prefixes: unknown kind %q", name)
		}
		if prefix == "" {
			return sequence.Config{}, fmt.Errorf("sequence.default_prefixes.%s cannot be empty", name)
		}
		out.DefaultPrefixes[kind] = prefix
	}
	for name, width := range cfg.Widths {
		kind := sequence.Kind(name)
		if !kind.IsValid() {
			return sequence.Config{}, fmt.Errorf("sequence.widths: unknown kind %q", name)
		}
		out.Widths[kind] = width
	}
	return out, nil
}
