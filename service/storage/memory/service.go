// Package memory implements storage.Service in process memory.
package memory

import (
	"context"
	"sort"

	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/service/dao"
	"github.com/viant/flowmind/service/dao/criteria"
	"github.com/viant/flowmind/service/dao/store"
	"github.com/viant/flowmind/service/storage"
)

// Service stores records in a dao memory store
type Service struct {
	records *store.MemoryStore[string, storage.Record]
}

// New creates memory storage
func New() *Service {
	records := store.NewMemoryStore[string, storage.Record](func(r *storage.Record) string { return r.ID() })
	records.WithMatcher(func(r *storage.Record, parameters []*dao.Parameter) bool {
		return criteria.Match(func(name string) (string, bool) {
			if name == "Namespace" {
				return r.Namespace, true
			}
			return "", false
		}, parameters)
	})
	return &Service{records: records}
}

func (s *Service) Put(ctx context.Context, namespace, key string, value interface{}, options ...storage.Option) error {
	if err := storage.Validate(namespace, key); err != nil {
		return err
	}
	return s.records.Save(ctx, storage.NewRecord(namespace, key, value, options...))
}

func (s *Service) live(ctx context.Context, namespace, key string) (*storage.Record, error) {
	if err := storage.Validate(namespace, key); err != nil {
		return nil, err
	}
	record, _ := s.records.Load(ctx, storage.RecordID(namespace, key))
	if record == nil {
		return nil, storage.NotFound(namespace, key)
	}
	if record.IsExpired(clock.Now()) {
		_ = s.records.Delete(ctx, record.ID())
		return nil, storage.NotFound(namespace, key)
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, namespace, key string) (interface{}, error) {
	record, err := s.live(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	return record.Value, nil
}

func (s *Service) Update(ctx context.Context, namespace, key string, value interface{}) error {
	record, err := s.live(ctx, namespace, key)
	if err != nil {
		return err
	}
	updated := *record
	updated.Value = value
	updated.UpdatedAt = clock.Now()
	return s.records.Save(ctx, &updated)
}

func (s *Service) Delete(ctx context.Context, namespace, key string) error {
	if err := storage.Validate(namespace, key); err != nil {
		return err
	}
	return s.records.Delete(ctx, storage.RecordID(namespace, key))
}

func (s *Service) List(ctx context.Context, namespace string) ([]string, error) {
	records, err := s.records.List(ctx, dao.NewParameter("Namespace", namespace))
	if err != nil {
		return nil, err
	}
	now := clock.Now()
	var keys []string
	for _, record := range records {
		if record.IsExpired(now) {
			continue
		}
		keys = append(keys, record.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ storage.Service = (*Service)(nil)
