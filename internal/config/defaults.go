package config

const (
	defaultOutputDir          = "~/.local/share/loom/runs"
	defaultLogDir             = "~/.local/share/loom/logs"
	defaultLogRetentionDays   = 60
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultCrawlMaxPages      = 100
	defaultCrawlDelayMillis   = 1000
	defaultCrawlTimeout       = 20
	defaultCrawlUserAgent     = "loom/0.1 (training-data pipeline)"
	defaultCleanMinChars      = 40
	defaultCleanLanguage      = "eng"
	defaultSliceMaxChars      = 1200
	defaultSliceMinChars      = 80
	defaultGenerateMaxTokens  = 6000
	defaultGeneratePairs      = 3
	defaultLLMBaseURL         = "https://api.groq.com/openai/v1/chat/completions"
	defaultLLMModel           = "llama-3.1-8b-instant"
	defaultLLMTimeoutSeconds  = 120
	defaultNtfyTimeout        = 10
	defaultRunPollInterval    = 5
	defaultErrorRetryInterval = 10
	defaultMaxConcurrentRuns  = 2
)

func defaultGenerateRoles() []string {
	return []string{"DESCRIPTIVE", "PROCEDURAL", "TEMPORAL", "TRANSACTIONAL"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Crawl: Crawl{
			MaxPages:       defaultCrawlMaxPages,
			DelayMillis:    defaultCrawlDelayMillis,
			TimeoutSeconds: defaultCrawlTimeout,
			UserAgent:      defaultCrawlUserAgent,
		},
		Clean: Clean{
			MinSegmentChars: defaultCleanMinChars,
			Language:        defaultCleanLanguage,
		},
		Slice: Slice{
			MaxBlockChars: defaultSliceMaxChars,
			MinBlockChars: defaultSliceMinChars,
		},
		Generate: Generate{
			Roles:          defaultGenerateRoles(),
			MaxBatchTokens: defaultGenerateMaxTokens,
			PairsPerBatch:  defaultGeneratePairs,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Notifications: Notifications{
			TimeoutSeconds: defaultNtfyTimeout,
		},
		Workflow: Workflow{
			RunPollInterval:    defaultRunPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxConcurrentRuns:  defaultMaxConcurrentRuns,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
