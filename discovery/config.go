package discovery

import (
	"time"

	flags "github.com/jessevdk/go-flags"
)

// FileConfig mirrors the subset of Config that's meaningful to parse from
// a config file or command-line flags; Graph/Store are wired up by the
// host process after construction and have no flag representation.
type FileConfig struct {
	PruneInterval        time.Duration `long:"prune-interval" description:"how often to sweep the routing graph for stale channels"`
	RewriteCheckInterval time.Duration `long:"rewrite-check-interval" description:"how often to check whether the gossip store needs rewriting"`
}

// ParseFileConfig parses args (typically os.Args[1:]) into a FileConfig,
// applying the same defaults Control falls back to when left zero.
func ParseFileConfig(args []string) (*FileConfig, error) {
	cfg := &FileConfig{
		PruneInterval:        time.Hour,
		RewriteCheckInterval: 10 * time.Minute,
	}

	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return cfg, nil
}
