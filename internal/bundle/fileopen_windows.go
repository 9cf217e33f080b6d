//go:build windows

package bundle

import "os"

// openFileNoFollow opens a file for writing.
// On Windows, O_NOFOLLOW is not available; WriteAtomic still refuses a
// symlinked destination before renaming.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
