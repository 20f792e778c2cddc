// Package envscope temporarily overrides process environment variables.
//
// Every function returns a restore func that puts the previous value back,
// or removes the variable if it was unset. Callers defer it:
//
//	restore, err := envscope.Unset("GIT_DIR")
//	if err != nil {
//		return err
//	}
//	defer restore()
package envscope

import (
	"fmt"
	"os"
)

// Override sets key to value until the returned func is called.
func Override(key, value string) (restore func(), err error) {
	restore = saved(key)
	if err := os.Setenv(key, value); err != nil {
		restore()
		return nil, fmt.Errorf("setting %s: %w", key, err)
	}
	return restore, nil
}

// Unset removes key until the returned func is called.
func Unset(key string) (restore func(), err error) {
	restore = saved(key)
	if err := os.Unsetenv(key); err != nil {
		restore()
		return nil, fmt.Errorf("unsetting %s: %w", key, err)
	}
	return restore, nil
}

func saved(key string) func() {
	old, had := os.LookupEnv(key)
	return func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	}
}
