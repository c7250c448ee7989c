// Package settings reads and writes the flat key/value site settings and
// fans out a process-wide "settings updated" signal after each successful
// save.
package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/alief-faisal/portofoliowidia/backend"
)

// Recognized setting keys. The table may hold other rows; Load passes them
// through and consumers ignore what they don't know.
const (
	KeyAboutMe         = "about_me"
	KeyResumeLink      = "resume_link"
	KeySocialInstagram = "social_instagram"
	KeySocialWhatsapp  = "social_whatsapp"
	KeySocialTiktok    = "social_tiktok"
)

// Keys lists the recognized setting keys.
var Keys = []string{KeyAboutMe, KeyResumeLink, KeySocialInstagram, KeySocialWhatsapp, KeySocialTiktok}

// SignalName is the process-wide signal dispatched after a successful
// save. It carries no payload; subscribers re-read what they care about.
const SignalName = "site_settings_updated"

const tableName = "site_settings"

// Entry is one row of the settings table.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store reads and writes the site settings through the backend client.
type Store struct {
	client *backend.Client

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

// NewStore creates a settings store. A nil client is allowed: every
// operation then reports backend.ErrNotConfigured.
func NewStore(client *backend.Client) *Store {
	return &Store{
		client: client,
		subs:   make(map[int]func()),
	}
}

// Load reads all settings rows into a key to value map.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	if s.client == nil {
		return nil, backend.ErrNotConfigured
	}

	var rows []Entry
	if err := s.client.From(tableName).Select("key", "value").Get(ctx, &rows); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// Save upserts each entry with conflict target "key". Failures are
// collected into one aggregate error; entries that succeeded stay written
// and show up on the next Load. The settings-updated signal fires only
// when every upsert succeeded, and every subscriber has received it before
// Save returns.
func (s *Store) Save(ctx context.Context, entries []Entry) error {
	if s.client == nil {
		return backend.ErrNotConfigured
	}

	var g errgroup.Group
	errs := make([]error, len(entries))
	for i, entry := range entries {
		g.Go(func() error {
			errs[i] = s.client.From(tableName).Upsert(ctx, entry, "key")
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.notify()
	return nil
}

// Subscribe registers fn for the settings-updated signal and returns the
// deregistration func.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	log.Debug("dispatching settings signal", "signal", SignalName, "subscribers", len(subs))
	for _, fn := range subs {
		fn()
	}
}
