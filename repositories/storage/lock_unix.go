//go:build unix

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// locker holds an exclusive flock on dbname+".lock" while the database is
// open. The kernel releases it when the process exits, so a killed run does
// not leave the store locked.
var locker = flockLocker

func flockLocker(dbname string) (io.Closer, error) {
	f, err := os.OpenFile(dbname+lockSuffix, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s is already open: %w", dbname, ErrLocked)
		}
		return nil, err
	}
	return f, nil
}
