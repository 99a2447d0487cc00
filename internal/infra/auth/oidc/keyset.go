package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
)

const (
	keySetTTL           = 5 * time.Minute
	keySetMaxStale      = 15 * time.Minute
	keySetFetchTimeout  = 5 * time.Second
	keySetFetchAttempts = 3
	keySetRetryBase     = 200 * time.Millisecond
	keySetRetryMax      = 2 * time.Second
)

var errUnknownKey = errors.New("signing key not in key set")

type keyFreshness int

const (
	keyAbsent keyFreshness = iota
	keyCurrent
	keyStale
)

// keySet caches the provider's signing keys. Stale keys keep verifying for a
// grace period while a background refresh runs; concurrent misses share one
// fetch.
type keySet struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu         sync.RWMutex
	keys       map[string]jose.JSONWebKey
	expiresAt  time.Time
	staleUntil time.Time

	inflightMu sync.Mutex
	inflight   chan struct{}
	lastErr    error
}

func newKeySet(url string, client *http.Client, now func() time.Time) *keySet {
	return &keySet{
		url:    url,
		client: client,
		now:    now,
		keys:   map[string]jose.JSONWebKey{},
	}
}

func (s *keySet) get(ctx context.Context, kid string) (any, error) {
	if kid == "" {
		return nil, errUnknownKey
	}
	switch key, freshness := s.lookup(kid); freshness {
	case keyCurrent:
		return key.Key, nil
	case keyStale:
		s.refreshInBackground()
		return key.Key, nil
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	if key, freshness := s.lookup(kid); freshness != keyAbsent {
		return key.Key, nil
	}
	return nil, errUnknownKey
}

func (s *keySet) lookup(kid string) (jose.JSONWebKey, keyFreshness) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[kid]
	switch {
	case !ok:
		return jose.JSONWebKey{}, keyAbsent
	case now.Before(s.expiresAt):
		return key, keyCurrent
	case now.Before(s.staleUntil):
		return key, keyStale
	default:
		return jose.JSONWebKey{}, keyAbsent
	}
}

func (s *keySet) refreshInBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), keySetFetchTimeout)
		defer cancel()
		_ = s.refresh(ctx)
	}()
}

func (s *keySet) refresh(ctx context.Context) error {
	s.inflightMu.Lock()
	if ch := s.inflight; ch != nil {
		s.inflightMu.Unlock()
		select {
		case <-ch:
			s.inflightMu.Lock()
			defer s.inflightMu.Unlock()
			return s.lastErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	s.inflight = ch
	s.inflightMu.Unlock()

	err := s.fetchAndStore(ctx)

	s.inflightMu.Lock()
	s.lastErr = err
	s.inflight = nil
	close(ch)
	s.inflightMu.Unlock()
	return err
}

func (s *keySet) fetchAndStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, keySetFetchTimeout)
	defer cancel()

	delay := keySetRetryBase
	var keys map[string]jose.JSONWebKey
	var err error
	for attempt := 0; attempt < keySetFetchAttempts; attempt++ {
		if attempt > 0 {
			if werr := wait(ctx, delay); werr != nil {
				return werr
			}
			delay = min(delay*2, keySetRetryMax)
		}
		keys, err = s.fetch(ctx)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return err
	}
	now := s.now()
	s.mu.Lock()
	s.keys = keys
	s.expiresAt = now.Add(keySetTTL)
	s.staleUntil = s.expiresAt.Add(keySetMaxStale)
	s.mu.Unlock()
	return nil
}

func (s *keySet) fetch(ctx context.Context) (map[string]jose.JSONWebKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch returned %d", resp.StatusCode)
	}
	// Keys are decoded one at a time so a single unsupported entry does not
	// poison the whole set.
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	keys := make(map[string]jose.JSONWebKey, len(doc.Keys))
	for _, raw := range doc.Keys {
		var key jose.JSONWebKey
		if err := key.UnmarshalJSON(raw); err != nil {
			continue
		}
		if key.KeyID == "" || !key.IsPublic() || (key.Use != "" && key.Use != "sig") {
			continue
		}
		keys[key.KeyID] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return keys, nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
