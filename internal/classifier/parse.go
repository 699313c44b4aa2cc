package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/JakeFAU/localnews/internal/news"
)

const (
	keyScope     = "scope"
	keyCityState = "cityState"
)

// ParseResponse decodes the model's reply. Anything other than a single JSON
// object holding exactly "scope" and "cityState" is rejected with
// news.ErrClassify; the reply is never coerced.
func ParseResponse(content string) (news.Classification, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return news.Classification{}, fmt.Errorf("%w: decode reply: %v", news.ErrClassify, err)
	}
	if fields == nil {
		return news.Classification{}, fmt.Errorf("%w: reply is not an object", news.ErrClassify)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return news.Classification{}, fmt.Errorf("%w: trailing text after object", news.ErrClassify)
	}

	if extra := unexpectedKeys(fields); len(extra) > 0 {
		return news.Classification{}, fmt.Errorf("%w: unexpected keys %s", news.ErrClassify, strings.Join(extra, ","))
	}
	rawScope, ok := fields[keyScope]
	if !ok {
		return news.Classification{}, fmt.Errorf("%w: missing %q", news.ErrClassify, keyScope)
	}
	rawCity, ok := fields[keyCityState]
	if !ok {
		return news.Classification{}, fmt.Errorf("%w: missing %q", news.ErrClassify, keyCityState)
	}

	var scope string
	if isNull(rawScope) || json.Unmarshal(rawScope, &scope) != nil {
		return news.Classification{}, fmt.Errorf("%w: scope must be a string", news.ErrClassify)
	}
	s := news.Scope(scope)
	if !s.Valid() {
		return news.Classification{}, fmt.Errorf("%w: unknown scope %q", news.ErrClassify, scope)
	}

	var cityState string
	if !isNull(rawCity) {
		if err := json.Unmarshal(rawCity, &cityState); err != nil {
			return news.Classification{}, fmt.Errorf("%w: cityState must be a string or null", news.ErrClassify)
		}
		if s == news.ScopeGlobal {
			return news.Classification{}, fmt.Errorf("%w: GLOBAL with cityState %q", news.ErrClassify, cityState)
		}
	}

	return news.Classification{Scope: s, CityState: cityState}, nil
}

func unexpectedKeys(fields map[string]json.RawMessage) []string {
	var extra []string
	for k := range fields {
		if k != keyScope && k != keyCityState {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
