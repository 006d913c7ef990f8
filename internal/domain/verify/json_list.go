package verify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/publicsuffix"

	"github.com/target/workmarket/internal/domain/jobtags"
	"github.com/target/workmarket/internal/domain/model"
)

const (
	// jsonCheckedItems bounds how many items are inspected for required keys.
	jsonCheckedItems = 20
	// minQuoteLen is the shortest acceptable quote, in characters.
	minQuoteLen = 20
)

// placeholderDomains are registrable domains that never count as real sources.
var placeholderDomains = map[string]bool{
	"example.com":    true,
	"example.org":    true,
	"example.net":    true,
	"domain.com":     true,
	"yourdomain.com": true,
	"website.com":    true,
	"company.com":    true,
	"test.com":       true,
	"foo.com":        true,
	"bar.com":        true,
	"acme.com":       true,
}

// reservedTLDs never resolve on the public internet.
var reservedTLDs = map[string]bool{
	"test": true, "example": true, "invalid": true, "localhost": true, "local": true,
}

// JSONList checks a JSON array of objects against [json_min_items] and [json_required_keys].
type JSONList struct{}

func (JSONList) Name() string { return NameJSONList }

func (JSONList) Matches(_ *model.Job, tags jobtags.Tags) bool {
	if tagged(tags, NameJSONList) {
		return true
	}
	return untagged(tags) && (tags.Has(jobtags.JSONRequiredKeys) || tags.Has(jobtags.JSONMinItems))
}

func (v JSONList) Verify(_ context.Context, job *model.Job, tags jobtags.Tags, submission string) model.Outcome {
	items, source, ok := ExtractJSONArray(submission)
	if !ok {
		return Fail(v.Name(), "no parsable JSON array found in submission", nil)
	}

	minItems := tags.JSONMinItems
	if minItems <= 0 {
		minItems = 1
	}
	evidence := map[string]any{
		"source":    source,
		"items":     len(items),
		"min_items": minItems,
	}
	if len(items) < minItems {
		return Fail(v.Name(), fmt.Sprintf("expected at least %d items, got %d", minItems, len(items)), evidence)
	}

	required := tags.JSONRequiredKeys
	urlKeys, quoteKeys := classifyKeys(required)
	checked := min(len(items), jsonCheckedItems)
	evidence["checked"] = checked

	var domains []string
	for i := 0; i < checked; i++ {
		n := i + 1
		obj, isObj := items[i].(map[string]any)
		if len(required) > 0 && !isObj {
			evidence["item"] = n
			return Fail(v.Name(), fmt.Sprintf("item %d is not an object", n), evidence)
		}
		if missing := missingKeys(obj, required); len(missing) > 0 {
			evidence["item"] = n
			evidence["missing"] = missing
			return Fail(v.Name(), fmt.Sprintf("item %d is missing required key(s): %s", n, strings.Join(missing, ", ")), evidence)
		}
		for _, k := range urlKeys {
			host, err := checkURL(obj[k])
			if err != nil {
				evidence["item"] = n
				return Fail(v.Name(), fmt.Sprintf("item %d has invalid %s: %v", n, k, err), evidence)
			}
			domains = append(domains, host)
		}
		for _, k := range quoteKeys {
			q, _ := obj[k].(string)
			if utf8.RuneCountInString(strings.TrimSpace(q)) < minQuoteLen {
				evidence["item"] = n
				return Fail(v.Name(), fmt.Sprintf("item %d has a %s shorter than %d characters", n, k, minQuoteLen), evidence)
			}
		}
	}

	if len(urlKeys) > 0 {
		found := realDomains(domains)
		evidence["real_domains"] = found
		if jobtags.IsMarketScan(job.Title, tags) && len(found) == 0 {
			return Fail(v.Name(), "market scan cites no real (non-placeholder) domain", evidence)
		}
	}

	return Pass(v.Name(), fmt.Sprintf("%d items, required keys present", len(items)), evidence)
}

// classifyKeys picks out required keys that carry source URLs or quotes.
func classifyKeys(keys []string) (urlKeys, quoteKeys []string) {
	for _, k := range keys {
		lk := strings.ToLower(k)
		switch {
		case strings.Contains(lk, "url") || lk == "link" || lk == "source_link":
			urlKeys = append(urlKeys, k)
		case strings.Contains(lk, "quote"):
			quoteKeys = append(quoteKeys, k)
		}
	}
	return urlKeys, quoteKeys
}

func missingKeys(obj map[string]any, required []string) []string {
	var missing []string
	for _, k := range required {
		v, ok := obj[k]
		if !ok || v == nil {
			missing = append(missing, k)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

func checkURL(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New("not a string")
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", errors.New("malformed URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("URL must be http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, ".") {
		return "", errors.New("URL has no domain")
	}
	return host, nil
}

// realDomains returns the distinct registrable domains among hosts that sit under
// an ICANN public suffix and are not placeholders.
func realDomains(hosts []string) []string {
	seen := map[string]bool{}
	for _, h := range hosts {
		suffix, icann := publicsuffix.PublicSuffix(h)
		if !icann || reservedTLDs[suffix] {
			continue
		}
		etld1, err := publicsuffix.EffectiveTLDPlusOne(h)
		if err != nil || placeholderDomains[etld1] {
			continue
		}
		seen[etld1] = true
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
