package bincheck

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
)

func TestMissing(t *testing.T) {
	t.Parallel()
	var lookups []string
	c := &Checker{lookPath: func(name string) (string, error) {
		lookups = append(lookups, name)
		if name == "npm" || name == "aws" {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}}

	got := c.Missing("npm", "ada", "aws", "npx", "ada")
	if diff := cmp.Diff([]string{"ada", "npx"}, got); diff != "" {
		t.Errorf("unexpected missing tools (-want +got):\n%s", diff)
	}

	c.Missing("npm", "ada")
	if diff := cmp.Diff([]string{"npm", "ada", "aws", "npx"}, lookups); diff != "" {
		t.Errorf("lookups should be cached (-want +got):\n%s", diff)
	}
}
