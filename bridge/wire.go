// Package bridge carries notice state between the panel and its external
// store: the dismissal update protocol and the bootstrap payload.
package bridge

import (
	"errors"
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrNoNotices is returned when an update resolves to no notice id.
	ErrNoNotices = errors.New("bridge: no notice ids")
	// ErrForbidden is returned when the capability check rejects the caller.
	ErrForbidden = errors.New("bridge: forbidden")
	// ErrPersist wraps every other failed persistence call.
	ErrPersist = errors.New("bridge: persist failed")
)

// Update is the persistence request body.
type Update struct {
	NoticeID  string   `json:"notice_id,omitempty"`
	NoticeIDs []string `json:"notice_ids,omitempty"`
	// Dismissed is a pointer so the server can apply its default when absent.
	Dismissed *bool `json:"dismissed,omitempty"`
}

// IDs returns the sanitised union of NoticeIDs and NoticeID.
func (u Update) IDs() []string {
	all := append([]string(nil), u.NoticeIDs...)
	if u.NoticeID != "" {
		all = append(all, u.NoticeID)
	}
	return SanitizeIDs(all)
}

// DismissedOr returns Dismissed, or def when it is absent.
func (u Update) DismissedOr(def bool) bool {
	if u.Dismissed == nil {
		return def
	}
	return *u.Dismissed
}

// NewUpdate builds the request for ids. A single id travels as notice_id.
func NewUpdate(ids []string, dismissed bool) (Update, error) {
	clean := SanitizeIDs(ids)
	if len(clean) == 0 {
		return Update{}, ErrNoNotices
	}
	u := Update{Dismissed: &dismissed}
	if len(clean) == 1 {
		u.NoticeID = clean[0]
	} else {
		u.NoticeIDs = clean
	}
	return u, nil
}

// Response echoes what the store applied.
type Response struct {
	NoticeIDs []string `json:"notice_ids"`
	Dismissed bool     `json:"dismissed"`
	NoticeID  string   `json:"notice_id,omitempty"`
}

// NewResponse mirrors the applied ids, adding notice_id for a single id.
func NewResponse(ids []string, dismissed bool) Response {
	r := Response{NoticeIDs: ids, Dismissed: dismissed}
	if len(ids) == 1 {
		r.NoticeID = ids[0]
	}
	return r
}

// ErrorBody is the JSON shape of a rejected request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the notice state endpoint.
const (
	CodeForbidden     = "forbidden"
	CodeMissingNotice = "missing_notice"
	CodeBadRequest    = "bad_request"
)

// SanitizeIDs strips markup and control characters, trims, drops empty
// values and removes duplicates while keeping first-seen order.
func SanitizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = sanitizeText(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var stripTags = bluemonday.StrictPolicy()

// sanitizeText drops markup, unescapes entities and collapses whitespace,
// control characters included.
func sanitizeText(s string) string {
	s = html.UnescapeString(stripTags.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
