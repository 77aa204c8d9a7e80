package config

const (
	defaultDataDir       = "~/.local/share/vgmdb"
	defaultFixtureDir    = "fixtures"
	defaultLogDir        = "~/.local/share/vgmdb/logs"
	defaultFixtureFormat = "yaml"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			FixtureDir: defaultFixtureDir,
			LogDir:     defaultLogDir,
		},
		Fixtures: Fixtures{
			Format: defaultFixtureFormat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
