package config

const (
	defaultStateDir       = "~/.local/share/resumeup"
	defaultDownloadDir    = "~/Downloads"
	defaultLogDir         = "~/.local/share/resumeup/logs"
	defaultBaseURL        = "https://resumee-nhrs.onrender.com"
	defaultUploadTimeout  = 180
	defaultRequestTimeout = 15
	defaultReadyTimeout   = 60
	defaultStartingGrant  = 1
	defaultTarget         = "unscoped"
	defaultDisplayName    = "improved_resume.pdf"
	defaultNotifyTimeout  = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Backend: Backend{
			BaseURL:        defaultBaseURL,
			UploadTimeout:  defaultUploadTimeout,
			RequestTimeout: defaultRequestTimeout,
			ReadyTimeout:   defaultReadyTimeout,
		},
		Credits: Credits{
			StartingGrant: defaultStartingGrant,
		},
		Delivery: Delivery{
			Target:      defaultTarget,
			DisplayName: defaultDisplayName,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Processing:     true,
			Delivery:       false,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
