package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsComposesUserTargetAndOptions(t *testing.T) {
	r := NewSSHRunner("alice", "example.com", "-p 2222 -o StrictHostKeyChecking=no")
	got := r.args("ls -l '/'")
	want := []string{"-p", "2222", "-o", "StrictHostKeyChecking=no", "alice@example.com", "--", "ls -l '/'"}

	assert.Equal(t, want, got)
}

func TestArgsWithoutOptions(t *testing.T) {
	r := NewSSHRunner("bob", "host", "")
	got := r.args("cat '/etc/hostname'")
	want := []string{"bob@host", "--", "cat '/etc/hostname'"}

	assert.Equal(t, want, got)
}
