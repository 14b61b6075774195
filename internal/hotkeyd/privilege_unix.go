//go:build unix

package hotkeyd

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// DropPrivileges switches the whole process to creds. Supplementary groups
// and the group ID are dropped before the user ID, since a non-root user can
// no longer change its groups. Any failure must be treated as fatal.
func DropPrivileges(creds Credentials) error {
	// syscall applies these to every thread of the process
	if err := syscall.Setgroups([]int{creds.GID}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setgid(creds.GID); err != nil {
		return fmt.Errorf("setgid %d: %w", creds.GID, err)
	}
	if err := syscall.Setuid(creds.UID); err != nil {
		return fmt.Errorf("setuid %d: %w", creds.UID, err)
	}

	if unix.Getuid() != creds.UID || unix.Geteuid() != creds.UID {
		return fmt.Errorf("uid still %d/%d after drop", unix.Getuid(), unix.Geteuid())
	}
	if unix.Getgid() != creds.GID || unix.Getegid() != creds.GID {
		return fmt.Errorf("gid still %d/%d after drop", unix.Getgid(), unix.Getegid())
	}
	if creds.UID != 0 {
		if err := syscall.Setuid(0); err == nil {
			return fmt.Errorf("regained root after dropping to uid %d", creds.UID)
		}
	}
	return nil
}
