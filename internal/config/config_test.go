package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadFileDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "data/support_tickets.json", cfg.InputPath)
	assert.Equal(t, "results/tagged_tickets.json", cfg.OutputPath)
	assert.Equal(t, ClassifierAzure, cfg.Classifier)
	assert.Equal(t, OnErrorAbort, cfg.OnClassifierError)
	assert.Equal(t, "2024-02-01", cfg.AzureAPIVersion)
	assert.Zero(t, cfg.RequestTimeout)
	assert.Zero(t, cfg.ClassifierRPS)
}

func TestLoadFileEnvOverridesDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "AZURE_OPENAI_ENDPOINT=https://file.example.com\n" +
		"AZURE_OPENAI_API_KEY=file-key\n" +
		"AZURE_OPENAI_DEPLOYMENT=tagger\n" +
		"REQUEST_TIMEOUT=30s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("AZURE_OPENAI_API_KEY", "env-key")
	t.Setenv("CLASSIFIER_RPS", "2.5")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.AzureEndpoint)
	assert.Equal(t, "env-key", cfg.AzureAPIKey)
	assert.Equal(t, "tagger", cfg.AzureDeployment)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.ClassifierRPS)
	require.NoError(t, cfg.Validate())
}

func TestValidateAzureRequiresCredentials(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())

	cfg.Classifier = ClassifierMock
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := Config{
		InputPath:         "in.json",
		OutputPath:        "out.json",
		Classifier:        ClassifierMock,
		OnClassifierError: "retry",
	}
	assert.Error(t, cfg.Validate())

	cfg.OnClassifierError = OnErrorContinue
	assert.NoError(t, cfg.Validate())
}
