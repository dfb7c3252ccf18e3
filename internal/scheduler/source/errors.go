package source

import "fmt"

func errNotRunning(name string) error {
	return fmt.Errorf("source: %s is not running", name)
}
