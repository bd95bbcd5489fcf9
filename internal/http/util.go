package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

const maxListLimit = 100

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parseListParams reads page, limit and sorting from the query string and
// clamps them to sane bounds. Every other parameter becomes a filter.
func parseListParams(r *http.Request) entity.ListParams {
	page := parseIntQuery(r, queryPage, entity.DefaultPage)
	if page < 1 {
		page = entity.DefaultPage
	}
	limit := parseIntQuery(r, queryLimit, entity.DefaultLimit)
	if limit < 1 {
		limit = entity.DefaultLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := r.URL.Query()
	order := entity.SortDesc
	if strings.EqualFold(q.Get(querySortOrder), string(entity.SortAsc)) {
		order = entity.SortAsc
	}

	filters := map[string]string{}
	for k := range q {
		switch k {
		case queryPage, queryLimit, querySortBy, querySortOrder:
			continue
		}
		filters[k] = q.Get(k)
	}

	return entity.ListParams{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get(querySortBy),
		SortOrder: order,
		Filters:   filters,
	}
}

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationField("id", "Invalid id "+strconv.Quote(raw))
	}
	return id, nil
}
