package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/news"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config configures the OpenAI adapter.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // empty uses the SDK default
	Timeout time.Duration
}

// OpenAI classifies headlines with the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  openai.ChatModel
	logger *zap.Logger
}

var _ news.Classifier = (*OpenAI)(nil)

// NewOpenAI builds an adapter. SDK retries are disabled; the pipeline owns
// failure handling.
func NewOpenAI(cfg Config, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{
		client: &client,
		model:  openai.ChatModel(model),
		logger: logger.Named("classifier"),
	}
}

// Classify sends one title/snippet pair and parses the verdict.
func (c *OpenAI) Classify(ctx context.Context, title, snippet string) (news.Classification, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserPrompt(title, snippet)),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return news.Classification{}, fmt.Errorf("%w: openai request: %v", news.ErrClassify, err)
	}
	if len(resp.Choices) == 0 {
		return news.Classification{}, fmt.Errorf("%w: no choices in response", news.ErrClassify)
	}

	content := resp.Choices[0].Message.Content
	result, err := ParseResponse(content)
	if err != nil {
		c.logger.Debug("unusable classifier reply", zap.String("content", content), zap.Error(err))
		return news.Classification{}, err
	}
	return result, nil
}
