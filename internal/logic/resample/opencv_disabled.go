//go:build !opencv

package resample

import "fmt"

func newOpenCV(Options) (Engine, error) {
	return nil, fmt.Errorf("%w: \"opencv\" (rebuild with -tags opencv)", ErrUnknownEngine)
}
