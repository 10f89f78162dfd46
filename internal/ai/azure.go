package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultTemperature float32 = 0.2
	DefaultTopP        float32 = 1
)

// AzureConfig configures NewAzureClassifier. A zero Temperature or TopP
// means DefaultTemperature or DefaultTopP: the chat request omits zero
// sampling fields, so an explicit 0 could not reach the deployment anyway.
type AzureConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	APIVersion  string
	Temperature float32
	TopP        float32
	HTTPClient  *http.Client
}

// AzureClassifier talks to an Azure OpenAI chat deployment. One call is one
// request; there is no retry and no streaming.
type AzureClassifier struct {
	client      *openai.Client
	deployment  string
	temperature float32
	topP        float32
}

func NewAzureClassifier(cfg AzureConfig) (*AzureClassifier, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_ENDPOINT is not set")
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return nil, fmt.Errorf("AZURE_OPENAI_DEPLOYMENT is not set")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = DefaultTopP
	}

	oc := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		oc.APIVersion = cfg.APIVersion
	}
	deployment := cfg.Deployment
	oc.AzureModelMapperFunc = func(string) string { return deployment }
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	return &AzureClassifier{
		client:      openai.NewClientWithConfig(oc),
		deployment:  deployment,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

func (a *AzureClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.deployment,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: a.temperature,
		TopP:        a.topP,
	})
	if err != nil {
		return "", &TransportError{Err: classifyErr(err)}
	}
	if len(resp.Choices) == 0 {
		return "", &TransportError{Err: errors.New("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyErr(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", RateLimitError{RetryAfter: retryAfterFromMessage(err.Error())}, err)
	}
	return err
}

// retryAfterFromMessage picks up the "retry after N seconds" hint Azure puts
// in its 429 message body.
func retryAfterFromMessage(msg string) time.Duration {
	lower := strings.ToLower(msg)
	idx := strings.Index(lower, "retry after ")
	if idx < 0 {
		return 0
	}
	fields := strings.Fields(lower[idx+len("retry after "):])
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
