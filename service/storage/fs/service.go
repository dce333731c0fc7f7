// Package fs implements storage.Service with one JSON file per record on any afs supported file system.
package fs

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/service/storage"
)

const ext = ".json"

// Service implements file system storage
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

// New creates file system storage rooted at baseURL
func New(ctx context.Context, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	if exists, _ := fs.Exists(ctx, baseURL); !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create storage directory %s: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}

func (s *Service) recordURL(namespace, key string) string {
	return url.Join(s.baseURL, escape(namespace), escape(key)+ext)
}

func escape(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
}

func (s *Service) save(ctx context.Context, record *storage.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", record.ID(), err)
	}
	URL := s.recordURL(record.Namespace, record.Key)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record to %s: %w", URL, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, URL string) (*storage.Record, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", URL, err)
	}
	record := &storage.Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", URL, err)
	}
	return record, nil
}

// live loads unexpired record, expired records are removed; caller holds the lock
func (s *Service) live(ctx context.Context, namespace, key string) (*storage.Record, error) {
	if err := storage.Validate(namespace, key); err != nil {
		return nil, err
	}
	URL := s.recordURL(namespace, key)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check record %s: %w", URL, err)
	}
	if !exists {
		return nil, storage.NotFound(namespace, key)
	}
	record, err := s.load(ctx, URL)
	if err != nil {
		return nil, err
	}
	if record.IsExpired(clock.Now()) {
		_ = s.fs.Delete(ctx, URL)
		return nil, storage.NotFound(namespace, key)
	}
	return record, nil
}

func (s *Service) Put(ctx context.Context, namespace, key string, value interface{}, options ...storage.Option) error {
	if err := storage.Validate(namespace, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, storage.NewRecord(namespace, key, value, options...))
}

func (s *Service) Get(ctx context.Context, namespace, key string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.live(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	return record.Value, nil
}

func (s *Service) Update(ctx context.Context, namespace, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.live(ctx, namespace, key)
	if err != nil {
		return err
	}
	record.Value = value
	record.UpdatedAt = clock.Now()
	return s.save(ctx, record)
}

func (s *Service) Delete(ctx context.Context, namespace, key string) error {
	if err := storage.Validate(namespace, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.recordURL(namespace, key)
	if exists, _ := s.fs.Exists(ctx, URL); !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", URL, err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, namespace string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirURL := url.Join(s.baseURL, escape(namespace))
	if exists, _ := s.fs.Exists(ctx, dirURL); !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, dirURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dirURL, err)
	}
	now := clock.Now()
	var keys []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		record, err := s.load(ctx, object.URL())
		if err != nil {
			continue
		}
		if record.IsExpired(now) {
			_ = s.fs.Delete(ctx, object.URL())
			continue
		}
		keys = append(keys, record.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// BaseURL returns storage root
func (s *Service) BaseURL() string {
	return s.baseURL
}

var _ storage.Service = (*Service)(nil)
