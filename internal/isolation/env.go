package isolation

import (
	"os"
	"strings"
)

// rebuildEnvironment clears the inherited environment, then sets each
// KEY=VALUE entry; an entry with an empty key is ignored.
func rebuildEnvironment(env []string) {
	os.Clearenv()
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		os.Setenv(k, v)
	}
}
