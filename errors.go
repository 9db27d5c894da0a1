package thumbnark

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/eon-protocol/thumbnark/circuits/thumbnail"
)

// Error kinds. Every stage error wraps exactly one of them.
var (
	ErrImageDecode       = errors.New("image decode")
	ErrEncoding          = errors.New("pixel encoding")
	ErrAssignmentMissing = thumbnail.ErrAssignmentMissing
	ErrSetup             = errors.New("setup")
	ErrProofGeneration   = errors.New("proof generation")
	ErrVerification      = errors.New("verification")
	ErrIO                = errors.New("io")
	ErrConfig            = errors.New("config")
	ErrGeometry          = errors.New("geometry")
	ErrStage             = errors.New("stage out of order")
)

// fail tags err with kind and wraps it with msg.
func fail(kind error, err error, msg string) error {
	if err == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %w", kind, errors.Wrap(err, msg))
}
