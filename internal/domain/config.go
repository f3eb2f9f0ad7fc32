package domain

// Config mirrors ~/.aibridge/config.yaml.
type Config struct {
	ConfigFormatVersion string                `yaml:"config_format_version"`
	Defaults            RoutingDefaults       `yaml:"defaults"`
	Routing             RoutingSettings       `yaml:"routing"`
	Session             SessionSettings       `yaml:"session"`
	Dedupe              DedupeSettings        `yaml:"dedupe"`
	Registry            RegistrySettings      `yaml:"registry"`
	APIExecutors        []APIExecutorSettings `yaml:"api_executors"`
	CLIExecutors        []CLIExecutorSettings `yaml:"cli_executors"`
}

// RoutingDefaults selects the backend used when no prefix and no CLI intent
// applies, plus the CLI-layer default provider (empty means auto-detect).
type RoutingDefaults struct {
	Provider    string `yaml:"provider"`
	Layer       Layer  `yaml:"layer"`
	CLIProvider string `yaml:"cli_provider,omitempty"`
}

// RoutingSettings controls the smart router.
type RoutingSettings struct {
	AIIntentClassification bool `yaml:"ai_intent_classification"`
}

// SessionSettings controls the session manager lifecycle and persistence.
type SessionSettings struct {
	StoragePath    string `yaml:"storage_path"`
	MaxMessages    int    `yaml:"max_messages"`
	TimeoutSeconds int    `yaml:"timeout"`
}

// DedupeSettings controls the message deduplication cache.
type DedupeSettings struct {
	CacheSize int `yaml:"cache_size"`
}

// RegistrySettings points at the optional executor metadata file.
type RegistrySettings struct {
	ConfigFile string `yaml:"config_file,omitempty"`
}

// APIExecutorSettings declares one API-backed executor. The key itself is
// read from the environment variable named by AuthEnvVar, never from YAML.
type APIExecutorSettings struct {
	Provider       string `yaml:"provider"`
	AuthEnvVar     string `yaml:"auth_env_var"`
	Model          string `yaml:"model,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout,omitempty"`
}

// CLIExecutorSettings declares one CLI-backed executor rooted in a target
// project directory.
type CLIExecutorSettings struct {
	Provider       string `yaml:"provider"`
	Command        string `yaml:"command,omitempty"`
	TargetDir      string `yaml:"target_dir"`
	TimeoutSeconds int    `yaml:"timeout,omitempty"`
}

// HasProvider reports whether any executor block declares the provider.
func (c Config) HasProvider(provider string) bool {
	for _, api := range c.APIExecutors {
		if api.Provider == provider {
			return true
		}
	}
	for _, cli := range c.CLIExecutors {
		if cli.Provider == provider {
			return true
		}
	}
	return false
}
