package config

const (
	defaultBaseURL               = "http://127.0.0.1:5000"
	defaultInfoPath              = "/api/info"
	defaultDownloadPath          = "/api/download"
	defaultProgressPath          = "/api/progress"
	defaultRequestTimeoutSeconds = 60
	defaultMockListen            = "127.0.0.1:5000"
	defaultMockTickMS            = 500
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:               defaultBaseURL,
			InfoPath:              defaultInfoPath,
			DownloadPath:          defaultDownloadPath,
			ProgressPath:          defaultProgressPath,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Stream: Stream{
			Transport: TransportSSE,
		},
		Logging: Logging{
			Level: "info",
			File:  "~/.cache/ytw/ytw.log",
		},
		Mock: Mock{
			Listen: defaultMockListen,
			TickMS: defaultMockTickMS,
		},
	}
}
