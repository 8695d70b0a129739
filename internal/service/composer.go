package service

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// MergeQuery merges params into the query string of base. Each incoming key
// overwrites the base value; for a repeated incoming key only the last value
// is kept. Base pairs whose key is not overwritten are kept byte for byte,
// overwritten keys keep their first position and new keys are appended in
// sorted order. Everything but the query is left as it was.
func MergeQuery(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, base)
	}
	if len(params) == 0 {
		return base, nil
	}

	overrides := make(map[string]string, len(params))
	for key, vals := range params {
		if len(vals) > 0 {
			overrides[key] = vals[len(vals)-1]
		}
	}

	pairs := make([]string, 0, len(params))
	written := make(map[string]bool, len(overrides))
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key := queryKey(pair)
		value, overridden := overrides[key]
		switch {
		case !overridden:
			pairs = append(pairs, pair)
		case !written[key]:
			pairs = append(pairs, encodePair(key, value))
			written[key] = true
		}
	}

	added := make([]string, 0, len(overrides))
	for key := range overrides {
		if !written[key] {
			added = append(added, key)
		}
	}
	sort.Strings(added)
	for _, key := range added {
		pairs = append(pairs, encodePair(key, overrides[key]))
	}

	u.RawQuery = strings.Join(pairs, "&")
	u.ForceQuery = false

	return u.String(), nil
}

// queryKey returns the decoded key of a raw "key=value" pair
func queryKey(pair string) string {
	rawKey, _, _ := strings.Cut(pair, "=")
	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		return rawKey
	}
	return key
}

func encodePair(key, value string) string {
	return url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
