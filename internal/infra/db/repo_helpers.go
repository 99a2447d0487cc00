package db

import (
	"errors"
	"strings"
	"time"
)

var errDBUnavailable = errors.New("db unavailable")

func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func splitScopes(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
