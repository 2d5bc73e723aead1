package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/flagx"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
	"github.com/dmitrijs2005/dbkeeper/internal/templates"
	"github.com/dmitrijs2005/dbkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Pointer and zero
// values mean "not set" so a partial file only overrides what it names.
type JsonConfig struct {
	DataDir        string          `json:"data_dir"`
	VaultBackend   string          `json:"vault_backend"`
	VaultFile      string          `json:"vault_file"`
	JournalFile    string          `json:"journal_file"`
	DockerHost     string          `json:"docker_host"`
	StopTimeout    *timex.Duration `json:"stop_timeout"`
	CleanupTimeout *timex.Duration `json:"cleanup_timeout"`
	ProbeTimeout   *timex.Duration `json:"probe_timeout"`
	LogFormat      string          `json:"log_format"`
	LogLevel       string          `json:"log_level"`

	KDF *struct {
		Time      uint32 `json:"time"`
		MemoryKiB uint32 `json:"memory_kib"`
		Threads   uint8  `json:"threads"`
		KeyLen    uint32 `json:"key_len"`
	} `json:"kdf"`

	S3 *struct {
		Bucket    string `json:"bucket"`
		Key       string `json:"key"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
		PathStyle bool   `json:"path_style"`
	} `json:"s3"`

	Health map[models.Kind]jsonHealth `json:"health"`
}

type jsonHealth struct {
	Attempts int                `json:"attempts"`
	Interval *timex.Duration    `json:"interval"`
	Timeout  *timex.Duration    `json:"timeout"`
	Backoff  Backoff            `json:"backoff"`
	Strategy templates.Strategy `json:"strategy"`
}

// parseJSON overlays cfg with the file given by -c/-config in args.
// A missing flag is not an error; an unreadable or malformed file is.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read config: %v", common.ErrConfigIO, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("%w: parse config %s: %v", common.ErrValidation, path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.VaultBackend, jc.VaultBackend)
	setString(&cfg.VaultFile, jc.VaultFile)
	setString(&cfg.JournalFile, jc.JournalFile)
	setString(&cfg.DockerHost, jc.DockerHost)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.StopTimeout != nil {
		cfg.StopTimeout = jc.StopTimeout.Duration
	}
	if jc.CleanupTimeout != nil {
		cfg.CleanupTimeout = jc.CleanupTimeout.Duration
	}
	if jc.ProbeTimeout != nil {
		cfg.ProbeTimeout = jc.ProbeTimeout.Duration
	}

	if k := jc.KDF; k != nil {
		if k.Time != 0 {
			cfg.KDF.Time = k.Time
		}
		if k.MemoryKiB != 0 {
			cfg.KDF.MemoryKiB = k.MemoryKiB
		}
		if k.Threads != 0 {
			cfg.KDF.Threads = k.Threads
		}
		if k.KeyLen != 0 {
			cfg.KDF.KeyLen = k.KeyLen
		}
	}

	if s := jc.S3; s != nil {
		setString(&cfg.S3.Bucket, s.Bucket)
		setString(&cfg.S3.Key, s.Key)
		setString(&cfg.S3.Region, s.Region)
		setString(&cfg.S3.Endpoint, s.Endpoint)
		setString(&cfg.S3.AccessKey, s.AccessKey)
		setString(&cfg.S3.SecretKey, s.SecretKey)
		cfg.S3.PathStyle = cfg.S3.PathStyle || s.PathStyle
	}

	if len(jc.Health) > 0 && cfg.Health == nil {
		cfg.Health = map[models.Kind]HealthPolicy{}
	}
	for kind, h := range jc.Health {
		p := cfg.HealthFor(kind)
		if h.Attempts != 0 {
			p.Attempts = h.Attempts
		}
		if h.Interval != nil {
			p.Interval = h.Interval.Duration
		}
		if h.Timeout != nil {
			p.Timeout = h.Timeout.Duration
		}
		if h.Backoff != "" {
			p.Backoff = h.Backoff
		}
		if h.Strategy != "" {
			p.Strategy = h.Strategy
		}
		cfg.Health[kind] = p
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
