package composer

import (
	"errors"
	"fmt"

	"github.com/kimkjin/BannerComposer/internal/models"
)

var (
	// ErrPreconditionNotMet blocks a dispatch before any render call is made.
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrMissingSource is returned when bulk-assigning to a source that was never uploaded.
	ErrMissingSource   = errors.New("source image not uploaded")
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrCompositeSlot   = errors.New("slot is a composite")
	ErrInvalidSource   = errors.New("invalid source image id")
	ErrInvalidOverride = models.ErrInvalidOverride
)

// RenderError is a per-slot failure reported by the rendering gateway.
type RenderError struct {
	Slot string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Slot, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
