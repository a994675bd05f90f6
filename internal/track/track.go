// Package track provides lightweight, sampled logging of filesystem
// callback invocations, useful for diagnosing which paths a mount is
// actually being asked about without logging every single call.
package track

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Every is the sampling rate: only every Nth call to Track is logged.
const Every = 50

var calls uint64

// Track logs a debug line for syscall against path, sampled at a rate of
// one in Every calls so that a busy mount doesn't flood the log.
func Track(syscall, path string) {
	n := atomic.AddUint64(&calls, 1)
	if n%Every != 1 {
		return
	}
	logrus.WithFields(logrus.Fields{
		"syscall": syscall,
		"path":    path,
		"calls":   n,
	}).Debug("fs callback")
}
