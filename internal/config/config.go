// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	GitHub GitHubConfig
	Jira   JiraConfig
	Sync   SyncConfig
}

// GitHubConfig holds forge-side configuration.
type GitHubConfig struct {
	Token string

	// Domain is the GitHub host, "github.com" unless pointing at a
	// GitHub Enterprise instance
	Domain string
}

// JiraConfig holds tracker-side configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string

	// ProjectKey is the Jira project receiving synchronized records
	ProjectKey string

	// LinkFieldID is the custom field holding the forge issue URL,
	// e.g. "customfield_10100". This field is the linking key.
	LinkFieldID string
}

// SyncConfig holds per-run synchronization settings.
type SyncConfig struct {
	// Label is the forge label marking issues to pull in batch mode
	Label string
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.project", "JIRA_PROJECT")
	v.BindEnv("jira.linkfield", "JIRA_LINK_FIELD")
	v.BindEnv("sync.label", "TRACKING_LABEL")

	v.SetDefault("github.domain", "github.com")
	v.SetDefault("jira.linkfield", "customfield_10100")
	v.SetDefault("sync.label", "tracked")

	config := &Config{
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		Jira: JiraConfig{
			URL:         v.GetString("jira.url"),
			Username:    v.GetString("jira.username"),
			Token:       v.GetString("jira.token"),
			ProjectKey:  v.GetString("jira.project"),
			LinkFieldID: v.GetString("jira.linkfield"),
		},
		Sync: SyncConfig{
			Label: v.GetString("sync.label"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures the forge-side values every command needs are set.
// Tracker validation is separate because read-only forge commands don't
// need Jira credentials.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateJiraConfig validates tracker-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if config.Jira.ProjectKey == "" {
		missingVars = append(missingVars, "JIRA_PROJECT")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
