// Package render defines the contract of the external rendering service.
package render

import (
	"context"
	"errors"

	"github.com/kimkjin/BannerComposer/internal/formats"
	"github.com/kimkjin/BannerComposer/internal/models"
)

// SlotRequest asks for one slot rendered from a source image.
type SlotRequest struct {
	Format   formats.Format
	Source   models.SourceImage
	Logos    []models.Logo
	Override *models.Override
}

// Component is one named input of a composite render.
type Component struct {
	Slot     string
	Artifact models.Artifact
}

// CompositeRequest asks for a composite built from already rendered slots,
// in dependency order.
type CompositeRequest struct {
	Format     formats.Format
	Components []Component
}

// Renderer is the rendering gateway. Calls are independent and may fail individually.
type Renderer interface {
	RenderSlot(ctx context.Context, req SlotRequest) (models.Artifact, error)
	RenderComposite(ctx context.Context, req CompositeRequest) (models.Artifact, error)
}

var ErrMissingComponent = errors.New("composite component missing")
