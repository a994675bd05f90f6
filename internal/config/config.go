// Package config resolves the CLI configuration for a mount invocation and
// performs the filesystem-adjacent setup (mount point creation, forced
// unmount of a stale mount) that has to happen before the FUSE server
// starts.
package config

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMountPoint matches the reference implementation's hardcoded test
// mount point.
const DefaultMountPoint = "/tmp/test"

// Mount holds the resolved settings for a single mount invocation.
type Mount struct {
	User    string
	Target  string
	Options string
	Dir     string
	Spinner bool
}

// PrepareMountPoint creates dir if it doesn't already exist and attempts to
// force-unmount anything already mounted there. Unmount failures are logged
// and otherwise ignored: if nothing was mounted there, the unmount command
// is expected to fail, and that's fine.
func PrepareMountPoint(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating mount point %s", dir)
	}

	if err := forceUnmount(dir); err != nil {
		logrus.WithError(err).WithField("dir", dir).Debug("no existing mount to clear")
	}

	return nil
}

func forceUnmount(dir string) error {
	if _, err := exec.LookPath("fusermount"); err == nil {
		return exec.Command("fusermount", "-u", dir).Run()
	}
	return exec.Command("umount", dir).Run()
}
