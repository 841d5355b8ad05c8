package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCrawl()
	c.normalizeClean()
	c.normalizeGenerate()
	c.normalizeLLM()
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCrawl() {
	if c.Crawl.MaxPages <= 0 {
		c.Crawl.MaxPages = defaultCrawlMaxPages
	}
	if c.Crawl.DelayMillis < 0 {
		c.Crawl.DelayMillis = 0
	}
	if c.Crawl.TimeoutSeconds <= 0 {
		c.Crawl.TimeoutSeconds = defaultCrawlTimeout
	}
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = defaultCrawlUserAgent
	}
}

func (c *Config) normalizeClean() {
	if c.Clean.MinSegmentChars <= 0 {
		c.Clean.MinSegmentChars = defaultCleanMinChars
	}
	c.Clean.Language = strings.ToLower(strings.TrimSpace(c.Clean.Language))
}

func (c *Config) normalizeGenerate() {
	if len(c.Generate.Roles) == 0 {
		c.Generate.Roles = defaultGenerateRoles()
	} else {
		roles := make([]string, 0, len(c.Generate.Roles))
		seen := make(map[string]struct{}, len(c.Generate.Roles))
		for _, role := range c.Generate.Roles {
			normalized := strings.ToUpper(strings.TrimSpace(role))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			roles = append(roles, normalized)
		}
		if len(roles) == 0 {
			roles = defaultGenerateRoles()
		}
		c.Generate.Roles = roles
	}
	if c.Generate.MaxBatchTokens <= 0 {
		c.Generate.MaxBatchTokens = defaultGenerateMaxTokens
	}
	if c.Generate.PairsPerBatch <= 0 {
		c.Generate.PairsPerBatch = defaultGeneratePairs
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("GROQ_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.TimeoutSeconds <= 0 {
		c.Notifications.TimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.RunPollInterval <= 0 {
		c.Workflow.RunPollInterval = defaultRunPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.MaxConcurrentRuns <= 0 {
		c.Workflow.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
