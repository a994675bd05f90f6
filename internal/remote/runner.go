// Package remote composes the ssh subprocess invocations used to fetch
// directory listings and file contents from a remote host.
package remote

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner fetches metadata and content for paths on a remote host. The SSH
// implementation is the only one shipped here, but callers depend on this
// interface so that it can be wrapped (see the progress package) or stubbed
// out in tests.
type Runner interface {
	// FetchPath lists the contents of the remote directory at path,
	// returning the raw `ls -l` output and whether the command succeeded.
	// A false result means the path does not exist or could not be
	// listed; callers must not distinguish further than that.
	FetchPath(ctx context.Context, path string) (listing string, ok bool)

	// FetchFile returns the full contents of the remote file at path, and
	// whether the command succeeded.
	FetchFile(ctx context.Context, path string) (contents []byte, ok bool)
}

// SSHRunner runs ls and cat on a remote host over an ssh subprocess.
type SSHRunner struct {
	User    string
	Target  string
	Options string
}

// NewSSHRunner constructs a Runner that shells out to the ssh binary on
// PATH, composing "ssh <options> <user>@<target> -- <remote-cmd>" exactly
// as a user would type it interactively.
func NewSSHRunner(user, target, options string) *SSHRunner {
	return &SSHRunner{User: user, Target: target, Options: options}
}

func (r *SSHRunner) FetchPath(ctx context.Context, path string) (string, bool) {
	remote := path
	if !strings.HasSuffix(remote, "/") {
		remote += "/"
	}

	stdout, _, err := r.run(ctx, "ls -l "+shellQuote(remote))
	if err != nil {
		return "", false
	}
	return stdout, true
}

func (r *SSHRunner) FetchFile(ctx context.Context, path string) ([]byte, bool) {
	stdout, _, err := r.run(ctx, "cat "+shellQuote(path))
	if err != nil {
		return nil, false
	}
	return []byte(stdout), true
}

// run composes and executes the ssh command, returning stdout and stderr
// separately. A non-nil error means the remote command exited non-zero or
// the ssh process itself failed to start.
func (r *SSHRunner) run(ctx context.Context, remoteCmd string) (stdout string, stderr string, err error) {
	args := r.args(remoteCmd)

	cmd := exec.CommandContext(ctx, "ssh", args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if runErr := cmd.Run(); runErr != nil {
		return outBuf.String(), errBuf.String(), errors.Wrapf(runErr, "ssh %s@%s: %s", r.User, r.Target, errBuf.String())
	}

	return outBuf.String(), errBuf.String(), nil
}

// args builds the ssh argument vector. Options are split on whitespace
// before being appended, matching the naive (shell-unaware) composition of
// the reference implementation; option values containing spaces are not
// supported.
func (r *SSHRunner) args(remoteCmd string) []string {
	var args []string
	if r.Options != "" {
		args = append(args, strings.Fields(r.Options)...)
	}
	args = append(args, r.User+"@"+r.Target, "--", remoteCmd)
	return args
}

// shellQuote wraps path in single quotes so that the remote shell sees it
// as one argument even when it contains spaces. It does not attempt to
// handle paths that themselves contain a single quote.
func shellQuote(path string) string {
	return "'" + path + "'"
}
