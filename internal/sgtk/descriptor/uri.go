package descriptor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

// DictToURI serializes a descriptor dict to its canonical URI form
// "sgtk:descriptor:<type>?k=v&...". Query keys are sorted and values
// percent-encoded, so two dicts describing the same location always
// produce byte-identical URIs; callers use URIs as dedup keys.
func DictToURI(d Dict) (string, error) {
	if err := validateDict(d); err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString(helpers.DescriptorURIPrefix)
	builder.WriteString(d.Type())

	keys := sortedKeys(d)
	for i, key := range keys {
		if i == 0 {
			builder.WriteByte('?')
		} else {
			builder.WriteByte('&')
		}
		builder.WriteString(url.QueryEscape(key))
		builder.WriteByte('=')
		builder.WriteString(url.QueryEscape(d[key]))
	}
	return builder.String(), nil
}

// URIToDict parses a descriptor URI back to dict form. It is the exact
// inverse of DictToURI over the legal dict space.
func URIToDict(uri string) (Dict, error) {
	rest, found := strings.CutPrefix(uri, helpers.DescriptorURIPrefix)
	if !found {
		return nil, fmt.Errorf("%w: %q", helpers.ErrDescriptorURIPrefix, uri)
	}

	typeName, query, _ := strings.Cut(rest, "?")
	if strings.TrimSpace(typeName) == "" {
		return nil, fmt.Errorf("%w: %q", helpers.ErrDescriptorTypeEmpty, uri)
	}

	d := Dict{KeyType: typeName}
	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", helpers.ErrDescriptorFieldInvalid, uri, err)
		}
		for key, list := range values {
			if key == KeyType {
				return nil, fmt.Errorf("%w: %q repeats the type", helpers.ErrDescriptorFieldInvalid, uri)
			}
			if len(list) != 1 {
				return nil, fmt.Errorf("%w: %q has repeated key %q", helpers.ErrDescriptorFieldInvalid, uri, key)
			}
			d[key] = list[0]
		}
	}

	if err := validateDict(d); err != nil {
		return nil, err
	}
	return d, nil
}

// CanonicalURI is DictToURI without validation errors surfacing to the
// caller; invalid dicts fall back to a stable best-effort key. Used for
// memoization keys where the dict was already validated.
func CanonicalURI(d Dict) string {
	uri, err := DictToURI(d)
	if err != nil {
		parts := make([]string, 0, len(d))
		for _, key := range sortedKeys(d) {
			parts = append(parts, key+"="+d[key])
		}
		return helpers.DescriptorURIPrefix + d.Type() + "?" + strings.Join(parts, "&")
	}
	return uri
}
