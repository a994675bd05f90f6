// Package progress decorates a remote.Runner with terminal status lines,
// purely for operator feedback; disabling it changes no cache semantics.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/zz85sh/sshfuse/internal/remote"
)

// View wraps a remote.Runner, printing a status line before and after each
// fetch. It implements remote.Runner itself so it can be used as a drop-in
// decorator.
type View struct {
	inner remote.Runner
	out   io.Writer
	fetch *color.Color
	done  *color.Color
}

var _ remote.Runner = (*View)(nil)

// Wrap returns a decorated Runner. When enabled is false, Wrap returns
// inner unchanged.
func Wrap(inner remote.Runner, enabled bool) remote.Runner {
	if !enabled {
		return inner
	}
	return &View{
		inner: inner,
		out:   os.Stderr,
		fetch: color.New(color.Faint, color.Bold),
		done:  color.New(color.FgGreen),
	}
}

// AutoEnable reports whether progress output should default to on: only
// when stderr is attached to a terminal.
func AutoEnable() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func (v *View) FetchPath(ctx context.Context, path string) (string, bool) {
	v.start("path", path)
	out, ok := v.inner.FetchPath(ctx, path)
	v.finish(path, ok)
	return out, ok
}

func (v *View) FetchFile(ctx context.Context, path string) ([]byte, bool) {
	v.start("file", path)
	out, ok := v.inner.FetchFile(ctx, path)
	v.finish(path, ok)
	return out, ok
}

func (v *View) start(kind, path string) {
	fmt.Fprintf(v.out, "fetching %s %s...\n", kind, v.fetch.Sprint(path))
}

func (v *View) finish(path string, ok bool) {
	if ok {
		fmt.Fprintf(v.out, "%s %s\n", v.done.Sprint("done:"), path)
		return
	}
	fmt.Fprintf(v.out, "%s %s\n", color.New(color.FgRed).Sprint("failed:"), path)
}
