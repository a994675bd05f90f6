// Command sshfuse mounts a remote host's directory tree as a local
// read-only filesystem, backed by on-demand `ls -l`/`cat` invocations over
// ssh.
package main

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/jacobsa/timeutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zz85sh/sshfuse/internal/config"
	"github.com/zz85sh/sshfuse/internal/filecache"
	"github.com/zz85sh/sshfuse/internal/fsadapter"
	"github.com/zz85sh/sshfuse/internal/metacache"
	"github.com/zz85sh/sshfuse/internal/progress"
	"github.com/zz85sh/sshfuse/internal/remote"
)

var opts config.Mount

func main() {
	root := &cobra.Command{
		Use:          "sshfuse",
		Short:        "Mount a remote host's directory tree as a read-only local filesystem",
		Args:         cobra.NoArgs,
		SilenceUsage: false,
		RunE:         run,
	}

	flags := root.Flags()
	flags.StringVar(&opts.User, "user", "", "ssh user to connect as (required)")
	flags.StringVar(&opts.Target, "target", "", "remote host to mount (required)")
	flags.StringVar(&opts.Options, "options", "", "extra flags passed through to ssh")
	flags.StringVar(&opts.Dir, "dir", config.DefaultMountPoint, "local mount point")
	flags.BoolVar(&opts.Spinner, "spinner", progress.AutoEnable(), "show a progress line for each remote fetch")

	_ = root.MarkFlagRequired("user")
	_ = root.MarkFlagRequired("target")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("sshfuse")
	}
}

func run(cmd *cobra.Command, args []string) error {
	logrus.WithFields(logrus.Fields{
		"user":    opts.User,
		"target":  opts.Target,
		"options": opts.Options,
		"dir":     opts.Dir,
		"spinner": opts.Spinner,
	}).Debug("starting mount")

	if err := config.PrepareMountPoint(opts.Dir); err != nil {
		return err
	}

	var runner remote.Runner = remote.NewSSHRunner(opts.User, opts.Target, opts.Options)
	runner = progress.Wrap(runner, opts.Spinner)

	meta := metacache.New(runner, timeutil.RealClock())
	files := filecache.New(runner)
	impl := fsadapter.New(meta, files)

	nodeFs := pathfs.NewPathNodeFs(impl, nil)
	conn := nodefs.NewFileSystemConnector(nodeFs.Root(), nodefs.NewOptions())

	server, err := fuse.NewServer(conn.RawFS(), opts.Dir, &fuse.MountOptions{
		Name:       "sshfuse",
		FsName:     fmt.Sprintf("sshfuse@%s", opts.Target),
		Options:    []string{"ro"},
		AllowOther: false,
	})
	if err != nil {
		return fmt.Errorf("mounting at %s: %w", opts.Dir, err)
	}

	go server.Serve()
	if err := server.WaitMount(); err != nil {
		return fmt.Errorf("waiting for mount: %w", err)
	}

	server.Wait()
	return nil
}
