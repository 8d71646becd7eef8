// Package bincheck reports external tools missing from PATH.
package bincheck

import (
	"os/exec"
	"sync"

	"github.com/samber/lo"
)

type Checker struct {
	lookPath func(string) (string, error)
	cache    sync.Map
}

func NewChecker() *Checker {
	return &Checker{lookPath: exec.LookPath}
}

func (c *Checker) InPath(name string) bool {
	if v, ok := c.cache.Load(name); ok {
		found, _ := v.(bool)
		return found
	}

	_, err := c.lookPath(name)
	actual, _ := c.cache.LoadOrStore(name, err == nil)
	found, _ := actual.(bool)
	return found
}

// Missing returns the names not found in PATH, without duplicates.
func (c *Checker) Missing(names ...string) []string {
	return lo.Filter(lo.Uniq(names), func(name string, _ int) bool {
		return !c.InPath(name)
	})
}
