package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/configstore"
	"github.com/dmitrijs2005/dbkeeper/internal/cryptox"
	"github.com/dmitrijs2005/dbkeeper/internal/logging"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
)

// Vault backends.
const (
	BackendFile   = "file"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Backoff selects the spacing between health probes.
type Backoff string

const (
	BackoffConstant    Backoff = "constant"
	BackoffExponential Backoff = "exponential"
)

// HealthPolicy bounds readiness polling for one database kind.
type HealthPolicy struct {
	Attempts int
	Interval time.Duration
	// Timeout caps the whole polling loop; zero means attempts alone bound it.
	Timeout  time.Duration
	Backoff  Backoff
	Strategy templates.Strategy
}

// Config holds runtime settings for dbkeeper.
type Config struct {
	DataDir      string
	VaultBackend string
	VaultFile    string
	JournalFile  string
	S3           configstore.S3Config

	DockerHost  string
	StopTimeout time.Duration
	// CleanupTimeout bounds the rollback after a failed provision.
	CleanupTimeout time.Duration
	// ProbeTimeout bounds a single readiness probe.
	ProbeTimeout time.Duration

	LogFormat string
	LogLevel  string

	KDF    cryptox.KDFParams
	Health map[models.Kind]HealthPolicy
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := ".dbkeeper"
	if dir, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(dir, "dbkeeper")
	}

	return &Config{
		DataDir:        dataDir,
		VaultBackend:   BackendFile,
		VaultFile:      "vault.json",
		JournalFile:    "journal.db",
		DockerHost:     "",
		StopTimeout:    10 * time.Second,
		CleanupTimeout: 30 * time.Second,
		ProbeTimeout:   5 * time.Second,
		LogFormat:      logging.FormatText,
		LogLevel:       "info",
		KDF:            cryptox.DefaultKDFParams(),
		Health:         DefaultHealth(),
	}
}

// DefaultHealth returns per-kind readiness policies. MySQL initialises its
// data directory noticeably slower than the others.
func DefaultHealth() map[models.Kind]HealthPolicy {
	return map[models.Kind]HealthPolicy{
		models.KindPostgres: {Attempts: 30, Interval: 2 * time.Second, Timeout: 90 * time.Second, Backoff: BackoffConstant, Strategy: templates.StrategyExec},
		models.KindMySQL:    {Attempts: 45, Interval: 2 * time.Second, Timeout: 150 * time.Second, Backoff: BackoffConstant, Strategy: templates.StrategyExec},
		models.KindRedis:    {Attempts: 15, Interval: time.Second, Timeout: 30 * time.Second, Backoff: BackoffConstant, Strategy: templates.StrategyConnect},
	}
}

// Load builds a Config by applying defaults, then the JSON file named in
// args (if any), then flags found in args.
func Load(args []string) (*Config, error) {
	cfg := Default()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// VaultPath is where the file backend keeps the envelope.
func (c *Config) VaultPath() string {
	return filepath.Join(c.DataDir, c.VaultFile)
}

// JournalPath is the sqlite file of the lifecycle journal.
func (c *Config) JournalPath() string {
	return filepath.Join(c.DataDir, c.JournalFile)
}

// HealthFor returns the policy for kind, falling back to a conservative one
// for kinds without an entry.
func (c *Config) HealthFor(kind models.Kind) HealthPolicy {
	if p, ok := c.Health[kind]; ok {
		return p
	}
	return HealthPolicy{Attempts: 30, Interval: 2 * time.Second, Backoff: BackoffConstant}
}

func (c *Config) Validate() error {
	switch c.VaultBackend {
	case BackendFile, BackendMemory:
	case BackendS3:
		if c.S3.Bucket == "" || c.S3.Key == "" {
			return fmt.Errorf("%w: s3 backend needs bucket and key", common.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown vault backend %q", common.ErrValidation, c.VaultBackend)
	}

	if c.VaultBackend == BackendFile && c.VaultFile == "" {
		return fmt.Errorf("%w: vault file name is empty", common.ErrValidation)
	}

	if err := c.KDF.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	if c.StopTimeout < 0 {
		return fmt.Errorf("%w: negative stop timeout", common.ErrValidation)
	}
	if c.CleanupTimeout <= 0 || c.ProbeTimeout <= 0 {
		return fmt.Errorf("%w: cleanup and probe timeouts must be positive", common.ErrValidation)
	}

	for kind, p := range c.Health {
		if p.Attempts < 1 {
			return fmt.Errorf("%w: %s health attempts must be at least 1", common.ErrValidation, kind)
		}
		if p.Interval <= 0 {
			return fmt.Errorf("%w: %s health interval must be positive", common.ErrValidation, kind)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("%w: %s health timeout is negative", common.ErrValidation, kind)
		}
		switch p.Backoff {
		case "", BackoffConstant, BackoffExponential:
		default:
			return fmt.Errorf("%w: %s backoff %q", common.ErrValidation, kind, p.Backoff)
		}
		switch p.Strategy {
		case "", templates.StrategyExec, templates.StrategyConnect:
		default:
			return fmt.Errorf("%w: %s strategy %q", common.ErrValidation, kind, p.Strategy)
		}
	}

	return nil
}
