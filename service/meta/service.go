// Package meta loads YAML and JSON assets through afs, expanding ${env.KEY} references before decoding.
package meta

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads assets relative to baseURL
type Service struct {
	fs      afs.Service
	baseURL string
}

// New creates meta service, an empty baseURL resolves relative locations against the working directory
func New(fs afs.Service, baseURL string) *Service {
	if fs == nil {
		fs = afs.New()
	}
	if baseURL != "" {
		baseURL = url.Normalize(baseURL, file.Scheme)
	}
	return &Service{fs: fs, baseURL: baseURL}
}

// URL resolves location against baseURL
func (s *Service) URL(location string) string {
	if s.baseURL == "" || !url.IsRelative(location) {
		return url.Normalize(location, file.Scheme)
	}
	return url.Join(s.baseURL, location)
}

// Exists returns true if location exists
func (s *Service) Exists(ctx context.Context, location string) bool {
	ok, _ := s.fs.Exists(ctx, s.URL(location))
	return ok
}

// Download returns raw content with environment references expanded
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	URL := s.URL(location)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return []byte(expandEnvExpr(string(data))), nil
}

// Load decodes location into dest: JSON for .json files, YAML otherwise (dest may be *yaml.Node)
func (s *Service) Load(ctx context.Context, location string, dest interface{}) error {
	data, err := s.Download(ctx, location)
	if err != nil {
		return err
	}
	if strings.EqualFold(path.Ext(location), ".json") {
		if node, ok := dest.(*yaml.Node); ok {
			// JSON is a YAML subset
			return yaml.Unmarshal(data, node)
		}
		if err = json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("failed to decode %s: %w", location, err)
		}
		return nil
	}
	if err = yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", location, err)
	}
	return nil
}

// List returns URLs of YAML and JSON files under location, sorted
func (s *Service) List(ctx context.Context, location string) ([]string, error) {
	URL := s.URL(location)
	objects, err := s.fs.List(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", URL, err)
	}
	var ret []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(object.Name())) {
		case ".yaml", ".yml", ".json":
			ret = append(ret, object.URL())
		}
	}
	sort.Strings(ret)
	return ret, nil
}
