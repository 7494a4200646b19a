// Minimal query-string parsing for `streamName?key=value&...` suffixes

package main

import "strings"

// ParseQueryStringSimple splits a query string on '&' then '=', keeping
// only pairs that split into exactly two parts. It does not URL-decode
// values, matching the reference parser this is ported from.
func ParseQueryStringSimple(qs string) map[string]string {
	result := make(map[string]string)

	for _, pair := range strings.Split(qs, "&") {
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}

		result[parts[0]] = parts[1]
	}

	return result
}
