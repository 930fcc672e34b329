//go:build !unix

package preflight

import "os"

// checkAccess probes writability with a temporary file where access(2) is
// unavailable.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".rustactions-access-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
