package news

import "errors"

// Recoverable failures returned by the feed, the classifier and the stores.
// Callers wrap them with fmt.Errorf("...: %w") and test with errors.Is.
var (
	// ErrFeedTransport covers network failures and non-2xx responses other than throttling.
	ErrFeedTransport = errors.New("feed transport error")
	// ErrFeedRateLimited is an explicit throttle signal (HTTP 429 or equivalent).
	ErrFeedRateLimited = errors.New("feed rate limited")
	// ErrFeedParse is a malformed feed response body.
	ErrFeedParse = errors.New("feed parse error")
	// ErrClassify covers classifier transport failures and contract violations.
	ErrClassify = errors.New("classify error")
	// ErrInvalidPage is returned for negative page or size arguments.
	ErrInvalidPage = errors.New("page and size must be non-negative")
)
