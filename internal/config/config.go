package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	ClassifierAzure = "azure"
	ClassifierMock  = "mock"

	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	InputPath  string `mapstructure:"INPUT_PATH" validate:"required"`
	OutputPath string `mapstructure:"OUTPUT_PATH" validate:"required"`

	Classifier        string  `mapstructure:"CLASSIFIER" validate:"oneof=azure mock"`
	ClassifierRPS     float64 `mapstructure:"CLASSIFIER_RPS" validate:"gte=0"`
	OnClassifierError string  `mapstructure:"ON_CLASSIFIER_ERROR" validate:"oneof=abort continue"`

	AzureAPIKey     string `mapstructure:"AZURE_OPENAI_API_KEY" validate:"required_if=Classifier azure"`
	AzureEndpoint   string `mapstructure:"AZURE_OPENAI_ENDPOINT" validate:"required_if=Classifier azure"`
	AzureDeployment string `mapstructure:"AZURE_OPENAI_DEPLOYMENT" validate:"required_if=Classifier azure"`
	AzureAPIVersion string `mapstructure:"AZURE_OPENAI_API_VERSION" validate:"required_if=Classifier azure"`
}

var defaults = map[string]any{
	"ENV":                      "dev",
	"PORT":                     "8080",
	"LOG_LEVEL":                "info",
	"DATABASE_URL":             "",
	"ADMIN_KEY":                "",
	"CORS_ALLOWED_ORIGINS":     "*",
	"REQUEST_TIMEOUT":          "0s",
	"INPUT_PATH":               "data/support_tickets.json",
	"OUTPUT_PATH":              "results/tagged_tickets.json",
	"CLASSIFIER":               ClassifierAzure,
	"CLASSIFIER_RPS":           0,
	"ON_CLASSIFIER_ERROR":      OnErrorAbort,
	"AZURE_OPENAI_API_KEY":     "",
	"AZURE_OPENAI_ENDPOINT":    "",
	"AZURE_OPENAI_DEPLOYMENT":  "",
	"AZURE_OPENAI_API_VERSION": "2024-02-01",
}

// Load reads .env from the working directory when present; process
// environment variables take precedence over it.
func Load() (Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
		// Unmarshal only sees env vars for keys viper already knows about.
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validator.New().Struct(c)
}
