package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"tripmarket/pkg/config"
	apperrors "tripmarket/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// QueryBool reads a boolean flag. Anything unparsable counts as false.
func QueryBool(query url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	return err == nil && v
}

// QueryList merges repeated and comma separated values of key, dropping blanks.
func QueryList(query url.Values, key string) []string {
	var out []string
	for _, raw := range query[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
