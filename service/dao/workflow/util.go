package workflow

import (
	"fmt"
	"path"
	"strings"
	"sync/atomic"
)

var counter int32

func generateAnonymousID() string {
	return fmt.Sprintf("anonymous-%d", atomic.AddInt32(&counter, 1))
}

// definitionIDFromURL returns file name without extension
func definitionIDFromURL(URL string) string {
	if URL == "" {
		return ""
	}
	base := path.Base(URL)
	return strings.TrimSuffix(base, path.Ext(base))
}

func isDefinitionFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
