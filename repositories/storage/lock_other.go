//go:build !unix

package storage

import "io"

// nil selects the kv lock file, which a crashed run leaves behind; open
// removes it again when ForceNew is set.
var locker func(dbname string) (io.Closer, error)
