// Package testing is imported for its side effects by tests that touch the
// application wiring: it pins the process into test mode and points external
// services at unreachable addresses.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
	"time"
)

var testEnv = map[string]string{
	"DOCRENDER_TEST_MODE": "1",
	"GOTENBERG_URL":       "http://127.0.0.1:0",
	"REDIS_ADDR":          "127.0.0.1:0",
}

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testEnv {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
		time.Local = time.UTC
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be assigned by packages that need an explicit entry point.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
