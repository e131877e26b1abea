package bridge

import (
	"strconv"
	"strings"
)

// I18n maps string keys to translated labels.
type I18n map[string]string

// Label keys.
const (
	KeyTitle             = "title"
	KeyNoNotices         = "noNotices"
	KeyNoMatches         = "noMatches"
	KeyNoUnreadMatches   = "noUnreadMatches"
	KeyOpenPanel         = "openPanel"
	KeyClosePanel        = "closePanel"
	KeyMarkRead          = "markRead"
	KeyMarkUnread        = "markUnread"
	KeyMarkAllRead       = "markAllRead"
	KeyMarkAllUnread     = "markAllUnread"
	KeyShowDismissed     = "showDismissed"
	KeyHideDismissed     = "hideDismissed"
	KeyShowNotice        = "showNotice"
	KeyFiltersLabel      = "filtersLabel"
	KeyFilterAll         = "filterAll"
	KeyFilterError       = "filterError"
	KeyFilterWarning     = "filterWarning"
	KeyFilterSuccess     = "filterSuccess"
	KeyFilterInfo        = "filterInfo"
	KeySearchPlaceholder = "searchPlaceholder"
	KeyEmptyTitle        = "emptyTitle"
	KeyEmptyAction       = "emptyAction"
	KeyNewNotice         = "newNoticeAnnouncement"
	KeyBadgeActive       = "badgeActive"
	KeyBadgeArchived     = "badgeArchived"
	KeyToggleShortcut    = "toggleShortcut"
)

var defaultI18n = I18n{
	KeyTitle:             "Notifications",
	KeyNoNotices:         "There are no notifications.",
	KeyNoMatches:         "No notifications match the current filters.",
	KeyNoUnreadMatches:   "Every matching notification is archived.",
	KeyOpenPanel:         "Open notifications",
	KeyClosePanel:        "Close notifications",
	KeyMarkRead:          "Mark as read",
	KeyMarkUnread:        "Mark as unread",
	KeyMarkAllRead:       "Mark all as read",
	KeyMarkAllUnread:     "Mark all as unread",
	KeyShowDismissed:     "Show archived",
	KeyHideDismissed:     "Hide archived",
	KeyShowNotice:        "Show on page",
	KeyFiltersLabel:      "Filter notifications",
	KeyFilterAll:         "All",
	KeyFilterError:       "Errors",
	KeyFilterWarning:     "Warnings",
	KeyFilterSuccess:     "Success",
	KeyFilterInfo:        "Info",
	KeySearchPlaceholder: "Search notifications",
	KeyEmptyTitle:        "All caught up",
	KeyEmptyAction:       "Learn more",
	KeyNewNotice:         "New notifications: %d",
	KeyBadgeActive:       "Active",
	KeyBadgeArchived:     "Archived",
	KeyToggleShortcut:    "Alt+Shift+N",
}

// DefaultI18n returns a copy of the built-in English labels.
func DefaultI18n() I18n {
	out := make(I18n, len(defaultI18n))
	for k, v := range defaultI18n {
		out[k] = v
	}
	return out
}

// Get returns the label for key, falling back to the built-in one.
func (m I18n) Get(key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return defaultI18n[key]
}

// Count substitutes n for the first %d in the label for key.
func (m I18n) Count(key string, n int) string {
	return strings.Replace(m.Get(key), "%d", strconv.Itoa(n), 1)
}
