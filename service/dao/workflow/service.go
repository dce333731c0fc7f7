// Package workflow loads workflow definitions from YAML or JSON assets and keeps them cached by id.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/flowmind/internal/yml"
	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/service/meta"
	"gopkg.in/yaml.v3"
)

// Listener is notified when a definition is added or replaced
type Listener func(definition *model.Definition)

type Service struct {
	metaService *meta.Service
	listeners   []Listener
	mux         sync.RWMutex
	byID        map[string]*model.Definition
	byURL       map[string]string
}

// DecodeYAML decodes a definition from YAML or JSON
func (s *Service) DecodeYAML(encoded []byte) (*model.Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, types.WrapError(types.KindInvalidDefinition, "", err)
	}
	return s.ParseDefinition("", &node)
}

// ParseDefinition converts a yaml node into validated definition
func (s *Service) ParseDefinition(URL string, node *yaml.Node) (*model.Definition, error) {
	definition := &model.Definition{}
	if URL != "" {
		definition.Source = &model.Source{URL: URL}
	}
	if err := s.parseDefinition((*yml.Node)(node), definition); err != nil {
		return nil, types.WrapError(types.KindInvalidDefinition, "", fmt.Errorf("failed to parse %v: %w", URL, err))
	}
	if definition.ID == "" {
		definition.ID = definitionIDFromURL(URL)
	}
	if definition.ID == "" {
		definition.ID = generateAnonymousID()
	}
	if definition.Name == "" {
		definition.Name = definition.ID
	}
	if err := definition.Init(); err != nil {
		return nil, err
	}
	return definition, nil
}

// Load loads, validates and caches a definition; the .yaml extension is assumed when URL has none
func (s *Service) Load(ctx context.Context, URL string) (*model.Definition, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	URL = s.metaService.URL(URL)
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load definition from %s: %w", URL, err)
	}
	definition, err := s.ParseDefinition(URL, &node)
	if err != nil {
		return nil, err
	}
	s.Upsert(definition)
	return definition, nil
}

// LoadAll loads every definition file under location
func (s *Service) LoadAll(ctx context.Context, location string) ([]*model.Definition, error) {
	URLs, err := s.metaService.List(ctx, location)
	if err != nil {
		return nil, err
	}
	var ret []*model.Definition
	for _, URL := range URLs {
		definition, err := s.Load(ctx, URL)
		if err != nil {
			return ret, err
		}
		ret = append(ret, definition)
	}
	return ret, nil
}

// Refresh reloads a previously loaded URL; on failure the cached definition stays in place
func (s *Service) Refresh(ctx context.Context, URL string) (*model.Definition, error) {
	definition, err := s.Load(ctx, URL)
	if err != nil {
		if previous := s.LookupURL(URL); previous != nil {
			return previous, err
		}
		return nil, err
	}
	return definition, nil
}

// Upsert adds or replaces a definition. Executions already started keep the definition they began with.
func (s *Service) Upsert(definition *model.Definition) {
	if definition == nil {
		return
	}
	s.mux.Lock()
	s.byID[definition.ID] = definition
	if definition.Source != nil && definition.Source.URL != "" {
		s.byURL[definition.Source.URL] = definition.ID
	}
	listeners := s.listeners
	s.mux.Unlock()
	for _, listener := range listeners {
		listener(definition)
	}
}

// Lookup returns cached definition by id
func (s *Service) Lookup(id string) (*model.Definition, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	definition, ok := s.byID[id]
	return definition, ok
}

// LookupURL returns cached definition loaded from URL
func (s *Service) LookupURL(URL string) *model.Definition {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	URL = s.metaService.URL(URL)
	s.mux.RLock()
	defer s.mux.RUnlock()
	if id, ok := s.byURL[URL]; ok {
		return s.byID[id]
	}
	return nil
}

// Definitions returns cached definition ids, sorted
func (s *Service) Definitions() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

// New creates a new definition loader
func New(opts ...Option) *Service {
	s := &Service{
		byID:  map[string]*model.Definition{},
		byURL: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), "")
	}
	return s
}
