package fsadapter

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"

	"github.com/zz85sh/sshfuse/internal/filecache"
)

// file serves reads out of an in-memory byte slice already fetched by the
// file cache, and reports that slice's length from GetAttr. Every other
// nodefs.File method falls back to the default (ENOSYS/no-op)
// implementation, since writes are never supported.
type file struct {
	nodefs.File
	contents []byte
}

func newFile(contents []byte) nodefs.File {
	return &file{
		File:     nodefs.NewDefaultFile(),
		contents: contents,
	}
}

func (f *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	data := filecache.ReadAt(f.contents, off, len(dest))
	return fuse.ReadResultData(data), fuse.OK
}

func (f *file) GetAttr(out *fuse.Attr) fuse.Status {
	out.Size = uint64(len(f.contents))
	return fuse.OK
}
