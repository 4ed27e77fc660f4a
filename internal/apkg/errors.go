package apkg

import "errors"

// ErrArchiveFormat marks an archive whose embedded collection snapshot is
// missing or unreadable. It is always raised before any store write.
var ErrArchiveFormat = errors.New("invalid deck archive")
