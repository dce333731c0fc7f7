// Package criteria matches records against dao parameters.
package criteria

import (
	"github.com/viant/flowmind/service/dao"
)

// Fields returns a record field value by parameter name
type Fields func(name string) (string, bool)

// Match returns true when every parameter with a known field name equals
// the field value, or one of the values for []string parameters. Unknown
// names are ignored.
func Match(fields Fields, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		actual, ok := fields(parameter.Name)
		if !ok {
			continue
		}
		switch expected := parameter.Value.(type) {
		case string:
			if actual != expected {
				return false
			}
		case []string:
			found := false
			for _, candidate := range expected {
				if candidate == actual {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
