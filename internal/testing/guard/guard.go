// Package guard sets ORDERS_TEST_MODE unless the caller already chose a value.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ORDERS_TEST_MODE") == "" {
			_ = os.Setenv("ORDERS_TEST_MODE", "1")
		}
	})
}
