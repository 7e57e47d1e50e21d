//go:build unix

package launcher

import "golang.org/x/sys/unix"

// checkEnterable reports whether the invoking user may traverse dir.
func checkEnterable(dir string) error {
	return unix.Access(dir, unix.X_OK)
}
