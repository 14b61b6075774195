//go:build !unix

package hotkeyd

import "errors"

// DropPrivileges is not supported on this platform
func DropPrivileges(Credentials) error {
	return errors.New("privilege drop not supported")
}
