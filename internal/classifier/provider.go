package classifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/news"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// New builds the classifier for provider.
func New(provider string, cfg Config, logger *zap.Logger) (news.Classifier, error) {
	switch provider {
	case "", ProviderOpenAI:
		return NewOpenAI(cfg, logger), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", provider)
	}
}
