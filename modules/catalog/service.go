package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/google/uuid"
)

const (
	recordSuffix = ".json"
	maxIDLength  = 100
	maxTextLen   = 4000
)

// validateBookID accepts generated ids: letters, digits and hyphens.
func validateBookID(id string) error {
	if id == "" || len(id) > maxIDLength {
		return ErrInvalidBookID
	}
	for _, c := range id {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-') {
			return fmt.Errorf("%w: %s", ErrInvalidBookID, id)
		}
	}
	return nil
}

// cleanText trims and drops control characters; newlines survive only when multiline is set.
func cleanText(s string, multiline bool) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' && multiline {
			return r
		}
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if len(s) > maxTextLen {
		s = s[:maxTextLen]
		// never cut a multi-byte rune in half
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

func validatePublicURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) URL", ErrInvalidBook, field)
	}
	return nil
}

func recordKey(id string) string {
	return id + recordSuffix
}

// Service provides book catalog operations.
type Service struct {
	store RecordStore
	now   func() time.Time
}

// NewService creates a new catalog service.
func NewService(store RecordStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Save sanitizes, validates and stores a record. An empty id gets a fresh one.
func (s *Service) Save(ctx context.Context, rec book.Record) (*book.Record, error) {
	rec.Title = cleanText(rec.Title, false)
	rec.Author = cleanText(rec.Author, false)
	rec.Category = cleanText(rec.Category, false)
	rec.Summary = cleanText(rec.Summary, true)
	rec.Cover = strings.TrimSpace(rec.Cover)
	rec.DownloadURL = strings.TrimSpace(rec.DownloadURL)

	for _, f := range []struct{ name, value string }{
		{"title", rec.Title},
		{"author", rec.Author},
		{"category", rec.Category},
		{"summary", rec.Summary},
	} {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidBook, f.name)
		}
	}
	if err := validatePublicURL("cover", rec.Cover); err != nil {
		return nil, err
	}
	if err := validatePublicURL("downloadUrl", rec.DownloadURL); err != nil {
		return nil, err
	}

	if rec.ID == "" {
		rec.ID = "book-" + uuid.NewString()
	}
	if err := validateBookID(rec.ID); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.store.Put(ctx, recordKey(rec.ID), data); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get retrieves a record by id.
func (s *Service) Get(ctx context.Context, id string) (*book.Record, error) {
	if err := validateBookID(id); err != nil {
		return nil, err
	}

	keys, err := s.store.Keys(ctx, recordKey(id))
	if err != nil {
		return nil, err
	}
	found := false
	for _, k := range keys {
		if k == recordKey(id) {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}

	return s.load(ctx, recordKey(id))
}

// List returns records newest first along with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]book.Record, int, error) {
	keys, err := s.store.Keys(ctx, "")
	if err != nil {
		return nil, 0, err
	}

	records := make([]book.Record, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, recordSuffix) {
			continue
		}
		rec, err := s.load(ctx, key)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, *rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	total := len(records)
	if offset < 0 {
		offset = 0
	}
	if offset > len(records) {
		return []book.Record{}, total, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, total, nil
}

func (s *Service) load(ctx context.Context, key string) (*book.Record, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var rec book.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	return &rec, nil
}
