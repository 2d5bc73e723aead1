package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -d, -b, -H and -l are looked at, so flags meant for other parsers
// do not cause errors here.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-d", "-b", "-H", "-l"})

	fs := flag.NewFlagSet("dbkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.VaultBackend, "b", cfg.VaultBackend, "vault backend: file, s3 or memory")
	fs.StringVar(&cfg.DockerHost, "H", cfg.DockerHost, "docker daemon host")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
