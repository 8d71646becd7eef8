package projcfg

import (
	"os"

	"github.com/cockroachdb/errors"
)

// SetMidwaySecretID records the Midway secret id for a stage and rewrites the
// whole configuration file. The file is re-read first so that every other
// field, including ones this package does not know about, is kept as is and
// in its original order.
func (c *Config) SetMidwaySecretID(stage, secretID string) error {
	acct, ok := c.Accounts[stage]
	if !ok {
		return errors.Newf("stage %q is not configured", stage)
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", c.Path)
	}

	doc, err := decodeOrdered(data)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", c.Path)
	}

	entry := doc.get("accounts").get(stage)
	if entry == nil || entry.kind != jsonObject {
		return errors.Newf("account %q missing from %s", stage, c.Path)
	}
	entry.set("midwaySecretId", &jsonNode{kind: jsonScalar, scalar: secretID})

	out, err := doc.encode("    ")
	if err != nil {
		return errors.Wrap(err, "encoding project configuration")
	}
	out = append(out, '\n')

	info, err := os.Stat(c.Path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", c.Path)
	}
	if err := os.WriteFile(c.Path, out, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "writing %s", c.Path)
	}

	acct.MidwaySecretID = secretID
	c.Accounts[stage] = acct
	return nil
}
