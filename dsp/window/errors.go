package window

import (
	"errors"
	"fmt"
)

var errUnknownType = errors.New("unknown smoothing type")

func validateLength(size int) error {
	if size <= 0 {
		return fmt.Errorf("window size must be > 0: %d", size)
	}
	return nil
}
