package predictions

import (
	"errors"
)

// Sentinel kinds for interchange format errors.
var (
	ErrFormat = errors.New("invalid interchange format")
)
