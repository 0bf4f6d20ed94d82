package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ArticleID identifies an article in either store. Drafts carry a numeric
// id generated locally and never seen by the remote store; the remote
// store assigns an opaque non-numeric string on first publish. Ids arrive
// from heterogeneous sources (UI state, JSON bodies, the cache file), so
// a numeric id and its string-encoded form must compare equal. That is
// achieved by normalizing every id to its string form at decode time.
type ArticleID struct {
	value string
}

// NewID wraps a raw id string as received from a store or a caller.
func NewID(s string) ArticleID {
	return ArticleID{value: s}
}

// TempID wraps a locally generated numeric id.
func TempID(n int64) ArticleID {
	return ArticleID{value: strconv.FormatInt(n, 10)}
}

// NewTempID generates a fresh temporary id from the current wall clock,
// unique enough within a single cache for interactive use.
func NewTempID() ArticleID {
	return TempID(time.Now().UnixMilli())
}

func (id ArticleID) String() string { return id.value }

func (id ArticleID) IsZero() bool { return id.value == "" }

// IsCanonical reports whether the id was assigned by the remote store.
// Canonical ids are opaque non-numeric strings; anything all-digit is a
// local temporary id.
func (id ArticleID) IsCanonical() bool {
	return id.value != "" && !isNumeric(id.value)
}

// Equals is the fuzzy match: ids compare by normalized string form, so
// numeric 7 and string "7" are the same id.
func (id ArticleID) Equals(other ArticleID) bool {
	return id.value != "" && id.value == other.value
}

// MarshalJSON preserves the legacy cache file shape: temporary ids are
// written back as JSON numbers, canonical ids as strings.
func (id ArticleID) MarshalJSON() ([]byte, error) {
	if id.value == "" {
		return []byte(`""`), nil
	}
	if isNumeric(id.value) {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ArticleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty article id")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid article id: %w", err)
		}
		id.value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid article id %s: %w", data, err)
	}
	id.value = n.String()
	return nil
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
