// Package typed converts loosely typed step configuration into typed structs.
package typed

import (
	"fmt"

	"github.com/viant/structology/conv"
)

var converter = newConverter()

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true
	return conv.NewConverter(options)
}

// Decode converts src map into dest pointer, empty src leaves dest untouched
func Decode(src map[string]interface{}, dest interface{}) error {
	if len(src) == 0 {
		return nil
	}
	if err := converter.Convert(src, dest); err != nil {
		return fmt.Errorf("failed to decode %T: %w", dest, err)
	}
	return nil
}
