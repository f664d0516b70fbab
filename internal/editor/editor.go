// Package editor turns the input of the visual editing widgets into an
// Override and hands it to a single save callback.
package editor

import (
	"context"
	"fmt"
	"math"

	"github.com/kimkjin/BannerComposer/internal/models"
)

// SaveFunc receives the finished override of a slot.
type SaveFunc func(ctx context.Context, slot string, override *models.Override) error

// LogoEdit is one dragged/resized logo. Height is derived from the logo's
// aspect ratio when left at zero.
type LogoEdit struct {
	X           int                `json:"x"`
	Y           int                `json:"y"`
	Width       int                `json:"width"`
	Height      int                `json:"height,omitempty"`
	ColorFilter models.ColorFilter `json:"color_filter,omitempty"`
}

// Edit is the raw payload produced by the editing widgets.
type Edit struct {
	Image      *models.ImageOverride   `json:"image,omitempty"`
	Background *models.Background      `json:"background,omitempty"`
	Logos      []LogoEdit              `json:"logo,omitempty"`
	Tagline    *models.TaglineOverride `json:"tagline,omitempty"`
}

// Builder accumulates edits for one slot.
type Builder struct {
	slot     string
	logos    []models.Logo
	override models.Override
	onSave   SaveFunc
}

// New starts a builder for slot. logos is the current selection, used to
// derive logo heights.
func New(slot string, logos []models.Logo, onSave SaveFunc) *Builder {
	return &Builder{
		slot:   slot,
		logos:  logos,
		onSave: onSave,
	}
}

// Crop sets the source crop box, the editor crop position and the zoom.
func (b *Builder) Crop(box models.ImageOverride) *Builder {
	img := box
	if img.Zoom == 0 {
		img.Zoom = 1
	}
	b.override.Image = &img
	return b
}

// Background selects the canvas fill.
func (b *Builder) Background(kind models.BackgroundType, color string) *Builder {
	b.override.Background = &models.Background{Type: kind, Color: color}
	return b
}

// PlaceLogo positions the i-th logo of the selection. Placements before i
// that were never set are filled with zero values.
func (b *Builder) PlaceLogo(i int, edit LogoEdit) *Builder {
	for len(b.override.Logos) <= i {
		b.override.Logos = append(b.override.Logos, models.LogoPlacement{})
	}
	height := edit.Height
	if height == 0 && i < len(b.logos) {
		if ratio, err := AspectRatio(b.logos[i].Data); err == nil && ratio > 0 {
			height = int(math.Round(float64(edit.Width) / ratio))
		}
	}
	filter := edit.ColorFilter
	if filter == "" {
		filter = models.FilterNone
	}
	b.override.Logos[i] = models.LogoPlacement{
		X:           edit.X,
		Y:           edit.Y,
		Width:       edit.Width,
		Height:      height,
		ColorFilter: filter,
	}
	return b
}

// Tagline sets the slot's own tagline choice, including an explicit opt-out.
func (b *Builder) Tagline(t models.TaglineOverride) *Builder {
	b.override.Tagline = &t
	return b
}

// Apply copies every part present in edit.
func (b *Builder) Apply(edit Edit) *Builder {
	if edit.Image != nil {
		b.Crop(*edit.Image)
	}
	if edit.Background != nil {
		b.Background(edit.Background.Type, edit.Background.Color)
	}
	for i, l := range edit.Logos {
		b.PlaceLogo(i, l)
	}
	if edit.Tagline != nil {
		b.Tagline(*edit.Tagline)
	}
	return b
}

// Build validates and returns the override.
func (b *Builder) Build() (*models.Override, error) {
	o := b.override.Clone()
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", b.slot, err)
	}
	o.Normalize()
	return o, nil
}

// Save builds the override and passes it to the save callback.
func (b *Builder) Save(ctx context.Context) (*models.Override, error) {
	o, err := b.Build()
	if err != nil {
		return nil, err
	}
	if b.onSave != nil {
		if err := b.onSave(ctx, b.slot, o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
