package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	orig := os.Getenv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() { os.Setenv(key, orig) })
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		token   string
		wantErr bool
	}{
		{
			name:    "Explicit github.com",
			domain:  "github.com",
			token:   "test-token",
			wantErr: false,
		},
		{
			name:    "Custom GitHub domain",
			domain:  "github.example.com",
			token:   "test-token",
			wantErr: false,
		},
		{
			name:    "Empty domain should default to github.com",
			domain:  "",
			token:   "test-token",
			wantErr: false,
		},
		{
			name:    "Missing token",
			domain:  "github.com",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, "GITHUB_DOMAIN", tt.domain)
			setEnv(t, "GITHUB_TOKEN", tt.token)

			config, err := LoadConfig()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.token, config.GitHub.Token)
			if tt.domain == "" {
				assert.Equal(t, "github.com", config.GitHub.Domain)
			} else {
				assert.Equal(t, tt.domain, config.GitHub.Domain)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setEnv(t, "GITHUB_TOKEN", "test-token")
	setEnv(t, "GITHUB_DOMAIN", "")
	setEnv(t, "JIRA_LINK_FIELD", "")
	setEnv(t, "TRACKING_LABEL", "")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "customfield_10100", config.Jira.LinkFieldID)
	assert.Equal(t, "tracked", config.Sync.Label)
}

func TestValidateJiraConfig(t *testing.T) {
	tests := []struct {
		name    string
		jira    JiraConfig
		wantErr bool
	}{
		{
			name: "Complete configuration",
			jira: JiraConfig{
				URL:        "https://jira.example.com",
				Username:   "bot",
				Token:      "secret",
				ProjectKey: "PROJ",
			},
			wantErr: false,
		},
		{
			name: "Missing URL",
			jira: JiraConfig{
				Username:   "bot",
				Token:      "secret",
				ProjectKey: "PROJ",
			},
			wantErr: true,
		},
		{
			name: "Missing project key",
			jira: JiraConfig{
				URL:      "https://jira.example.com",
				Username: "bot",
				Token:    "secret",
			},
			wantErr: true,
		},
		{
			name:    "Everything missing",
			jira:    JiraConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJiraConfig(&Config{Jira: tt.jira})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigReadsJiraEnvironment(t *testing.T) {
	setEnv(t, "GITHUB_TOKEN", "test-token")
	setEnv(t, "JIRA_URL", "https://jira.example.com")
	setEnv(t, "JIRA_USERNAME", "bot")
	setEnv(t, "JIRA_TOKEN", "secret")
	setEnv(t, "JIRA_PROJECT", "PROJ")
	setEnv(t, "JIRA_LINK_FIELD", "customfield_12345")
	setEnv(t, "TRACKING_LABEL", "sync-me")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://jira.example.com", config.Jira.URL)
	assert.Equal(t, "bot", config.Jira.Username)
	assert.Equal(t, "secret", config.Jira.Token)
	assert.Equal(t, "PROJ", config.Jira.ProjectKey)
	assert.Equal(t, "customfield_12345", config.Jira.LinkFieldID)
	assert.Equal(t, "sync-me", config.Sync.Label)
	assert.NoError(t, ValidateJiraConfig(config))
}
