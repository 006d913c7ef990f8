package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/target/workmarket/internal/domain/model"
	apperrors "github.com/target/workmarket/internal/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ParseLimitOffset reads the limit and offset query parameters. Missing or
// malformed values fall back to defLimit and 0; limit is clamped to
// [1, maxLimit] and a negative offset becomes 0.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (int, int) {
	q := r.URL.Query()
	limit := clamp(queryInt(q.Get("limit"), defLimit), 1, max(maxLimit, 1))
	offset := max(queryInt(q.Get("offset"), 0), 0)
	return limit, offset
}

func queryInt(raw string, def int) int {
	if i, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return i
	}
	return def
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// parseJobListOptions builds a job listing filter from status, created_by,
// claimed_by and the pagination parameters. An unknown status is a
// validation error rather than an empty page.
func parseJobListOptions(r *http.Request) (model.JobListOptions, error) {
	q := r.URL.Query()
	limit, offset := ParseLimitOffset(r, defaultListLimit, maxListLimit)
	opts := model.JobListOptions{
		CreatedBy: strings.TrimSpace(q.Get("created_by")),
		ClaimedBy: strings.TrimSpace(q.Get("claimed_by")),
		Limit:     limit,
		Offset:    offset,
	}
	raw := strings.TrimSpace(q.Get("status"))
	if raw == "" {
		return opts, nil
	}
	var st model.JobStatus
	if err := st.UnmarshalText([]byte(raw)); err != nil {
		return opts, apperrors.ValidationField("status", err.Error())
	}
	opts.Status = &st
	return opts, nil
}
