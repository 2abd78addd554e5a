package queryopts

import (
	"net/url"
	"sort"
	"strings"
)

// ParseQuery reads a raw query string into Params. A leading "?" is ignored,
// pairs that fail to unescape are skipped and the first occurrence of a
// repeated name wins. A name without "=" maps to "".
func ParseQuery(raw string) Params {
	raw = strings.TrimPrefix(raw, "?")
	params := Params{}
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		name, err := url.QueryUnescape(name)
		if err != nil || name == "" {
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}
		if _, seen := params[name]; seen {
			continue
		}
		params[name] = value
	}
	return params
}

// ParamsFromValues takes the first value of every name in values.
func ParamsFromValues(values url.Values) Params {
	params := make(Params, len(values))
	for name, list := range values {
		if len(list) == 0 {
			params[name] = ""
			continue
		}
		params[name] = list[0]
	}
	return params
}

// Values converts p into url.Values.
func (p Params) Values() url.Values {
	values := make(url.Values, len(p))
	for name, value := range p {
		values.Set(name, value)
	}
	return values
}

// Encode renders p as a query string sorted by name. Commas stay literal so
// id lists remain readable in shared links.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeQuery(name))
		b.WriteByte('=')
		b.WriteString(escapeQuery(p[name]))
	}
	return b.String()
}

func escapeQuery(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "%2C", ",")
}
