package app

import (
	"fmt"

	"github.com/hylla/timebox/internal/domain"
)

// ErrBlobNotFound is returned by BlobStore implementations when no value exists for a key.
var ErrBlobNotFound = fmt.Errorf("%w: blob", domain.ErrNotFound)
