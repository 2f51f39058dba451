package grid

import "github.com/pkg/errors"

// ErrParse is wrapped by every map or lookup failure.
var ErrParse = errors.New("map parse error")
