package activity

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
	"github.com/jaevor/go-nanoid"
)

const maxRetries = 5

var (
	// ErrInvalidOwner is returned for owner ids that cannot form a bucket key.
	ErrInvalidOwner = errors.New("invalid owner id")
	// ErrConflict is returned when concurrent writers exhausted the retries.
	ErrConflict = errors.New("activity update conflict")
)

var validKey = regexp.MustCompile(`^[-_=a-zA-Z0-9]+$`)

// newEntryID generates URL-safe ids for feed entries.
var newEntryID = func() func() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return gen
}()

// Recorder keeps activity summaries in a JetStream KV bucket. Writes are
// revision checked and retried on conflict.
type Recorder struct {
	bucket kvjetstream.KVStoragePort
}

// NewRecorder creates a Recorder over bucket.
func NewRecorder(bucket kvjetstream.KVStoragePort) *Recorder {
	return &Recorder{bucket: bucket}
}

func summaryKey(owner string) (string, error) {
	if !validKey.MatchString(owner) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}
	return "activity." + owner, nil
}

// Record applies e to owner's summary. An entry without an id gets one.
func (r *Recorder) Record(owner string, e Entry) error {
	key, err := summaryKey(owner)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = newEntryID()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		entry, err := r.bucket.GetEntry(key)
		if errors.Is(err, kvjetstream.ErrKeyNotFound) {
			data, err := json.Marshal(apply(Summary{UserID: owner}, e))
			if err != nil {
				return fmt.Errorf("failed to marshal summary: %w", err)
			}
			_, err = r.bucket.Create(key, data, 0)
			if errors.Is(err, kvjetstream.ErrKeyExists) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to create summary: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read summary: %w", err)
		}

		var current Summary
		if err := json.Unmarshal(entry.Value, &current); err != nil {
			return fmt.Errorf("failed to unmarshal summary: %w", err)
		}
		data, err := json.Marshal(apply(current, e))
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}

		_, err = r.bucket.Update(key, data, 0, entry.Revision)
		if errors.Is(err, kvjetstream.ErrRevisionMismatch) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update summary: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: owner %s after %d attempts", ErrConflict, owner, maxRetries)
}

// Get returns owner's summary, empty when nothing has been recorded.
func (r *Recorder) Get(owner string) (*Summary, error) {
	key, err := summaryKey(owner)
	if err != nil {
		return nil, err
	}

	data, err := r.bucket.Get(key)
	if errors.Is(err, kvjetstream.ErrKeyNotFound) {
		return emptySummary(owner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	if s.Counts == nil {
		s.Counts = map[string]int64{}
	}
	if s.Recent == nil {
		s.Recent = []Entry{}
	}
	return &s, nil
}

func emptySummary(owner string) *Summary {
	return &Summary{
		UserID: owner,
		Counts: map[string]int64{},
		Recent: []Entry{},
	}
}

// apply returns s with e counted and prepended to the recent list.
func apply(s Summary, e Entry) Summary {
	counts := make(map[string]int64, len(s.Counts)+1)
	for k, v := range s.Counts {
		counts[k] = v
	}
	counts[e.Kind]++

	recent := make([]Entry, 0, MaxRecent)
	recent = append(recent, e)
	for _, old := range s.Recent {
		if len(recent) == MaxRecent {
			break
		}
		recent = append(recent, old)
	}

	s.Counts = counts
	s.Recent = recent
	if e.At.After(s.UpdatedAt) {
		s.UpdatedAt = e.At
	}
	return s
}
