// Package testing forces test mode so binaries skip runtime side effects
// when imported from _test files.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("DEVBOSS_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain keeps the flag set for packages delegating to this helper.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
