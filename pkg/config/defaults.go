package config

import "time"

// Default values applied to any field the file and environment left unset.
const (
	DefaultLogLevel  = "INFO"
	DefaultLogOutput = "stdout"

	DefaultNameMax        = 255
	DefaultPathRetryLimit = 8

	DefaultMetacacheType       = "memory"
	DefaultMetacacheMaxEntries = 1024
	DefaultMetacacheTTL        = 30 * time.Second
)

// ApplyDefaults fills in defaults for any missing configuration values.
// Called after unmarshalling and before validation, so a config file only
// needs to mention what it changes.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	if cfg.Mount.NameMax == 0 {
		cfg.Mount.NameMax = DefaultNameMax
	}
	if cfg.Mount.PathRetryLimit == 0 {
		cfg.Mount.PathRetryLimit = DefaultPathRetryLimit
	}

	if cfg.Metacache.Type == "" {
		cfg.Metacache.Type = DefaultMetacacheType
	}
	if cfg.Metacache.Memory.MaxEntries == 0 {
		cfg.Metacache.Memory.MaxEntries = DefaultMetacacheMaxEntries
	}
	if cfg.Metacache.Memory.TTL == 0 {
		cfg.Metacache.Memory.TTL = DefaultMetacacheTTL
	}
}
