package classifier

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/news"
)

// DefaultAnthropicModel is used when Config.Model is empty.
const DefaultAnthropicModel = "claude-haiku-4-5"

// The verdict is a short JSON object.
const anthropicMaxTokens = 128

// Anthropic classifies headlines with the Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

var _ news.Classifier = (*Anthropic)(nil)

// NewAnthropic builds an adapter with SDK retries disabled.
func NewAnthropic(cfg Config, logger *zap.Logger) *Anthropic {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
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
	client := anthropic.NewClient(opts...)

	return &Anthropic{
		client: &client,
		model:  anthropic.Model(model),
		logger: logger.Named("classifier"),
	}
}

// Classify sends one title/snippet pair and parses the verdict.
func (c *Anthropic) Classify(ctx context.Context, title, snippet string) (news.Classification, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(UserPrompt(title, snippet))),
		},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return news.Classification{}, fmt.Errorf("%w: anthropic request: %v", news.ErrClassify, err)
	}
	if len(resp.Content) == 0 {
		return news.Classification{}, fmt.Errorf("%w: empty message content", news.ErrClassify)
	}

	content := resp.Content[0].Text
	result, err := ParseResponse(content)
	if err != nil {
		c.logger.Debug("unusable classifier reply", zap.String("content", content), zap.Error(err))
		return news.Classification{}, err
	}
	return result, nil
}
