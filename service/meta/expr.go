package meta

import (
	"os"
	"regexp"
)

var envExpr = regexp.MustCompile(`\$\{env\.([A-Za-z0-9_]*)\}`)

// expandEnvExpr replaces ${env.KEY} with the value of environment variable KEY, unset variables expand to "".
func expandEnvExpr(value string) string {
	return envExpr.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(envExpr.FindStringSubmatch(match)[1])
	})
}
