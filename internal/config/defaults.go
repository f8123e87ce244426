package config

const (
	defaultConfigPath           = "~/.config/recapadmin/config.toml"
	projectConfigName           = "recapadmin.toml"
	defaultAddr                 = ":8080"
	defaultLoginIntervalSeconds = 2
	defaultShutdownTimeout      = 3
	defaultStoragePath          = "~/.local/share/recapadmin/recapadmin.db"
	defaultBusyTimeoutMS        = 5000
	defaultSynchronous          = "NORMAL"
	defaultAdminEmail           = "admin@recapshow.local"
	defaultSessionHours         = 24
	defaultSessionCacheMinutes  = 5
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:                 defaultAddr,
			LoginIntervalSeconds: defaultLoginIntervalSeconds,
			ShutdownTimeout:      defaultShutdownTimeout,
		},
		Storage: Storage{
			Path:          defaultStoragePath,
			BusyTimeoutMS: defaultBusyTimeoutMS,
			Synchronous:   defaultSynchronous,
		},
		Auth: Auth{
			AdminEmail:          defaultAdminEmail,
			SessionHours:        defaultSessionHours,
			SessionCacheMinutes: defaultSessionCacheMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
