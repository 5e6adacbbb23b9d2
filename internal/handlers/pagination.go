package handlers

import (
	"errors"
	"strconv"
)

var errBadPagination = errors.New("invalid pagination params")

const (
	defaultPage  = int64(1)
	defaultLimit = int64(20)
)

func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	page := defaultPage
	limit := defaultLimit

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errBadPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errBadPagination
		}
		limit = l
	}

	return page, limit, nil
}
