package config

import (
	"errors"
	"fmt"
)

var knownRoles = map[string]struct{}{
	"TRANSACTIONAL": {},
	"TEMPORAL":      {},
	"PROCEDURAL":    {},
	"PROMOTIONAL":   {},
	"DESCRIPTIVE":   {},
	"POLICY_LEGAL":  {},
	"CONTACT":       {},
	"GENERAL":       {},
}

// Validate ensures the configuration is usable. The LLM API key is checked
// at generation time rather than here so crawl-to-tag runs work without one.
func (c *Config) Validate() error {
	if err := c.validateSlice(); err != nil {
		return err
	}
	if err := c.validateGenerate(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSlice() error {
	if c.Slice.MaxBlockChars <= 0 {
		return errors.New("slice.max_block_chars must be positive")
	}
	if c.Slice.MinBlockChars <= 0 {
		return errors.New("slice.min_block_chars must be positive")
	}
	if c.Slice.MinBlockChars >= c.Slice.MaxBlockChars {
		return errors.New("slice.min_block_chars must be less than slice.max_block_chars")
	}
	return nil
}

func (c *Config) validateGenerate() error {
	for _, role := range c.Generate.Roles {
		if _, ok := knownRoles[role]; !ok {
			return fmt.Errorf("generate.roles contains unknown role %q", role)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"crawl.timeout_seconds":         c.Crawl.TimeoutSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"workflow.run_poll_interval":    c.Workflow.RunPollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.max_concurrent_runs":  c.Workflow.MaxConcurrentRuns,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
