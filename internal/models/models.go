package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// SourceID names one of the two uploaded campaign images.
type SourceID string

const (
	SourceA SourceID = "imageA"
	SourceB SourceID = "imageB"
)

// Valid reports whether id is one of the two known sources.
func (id SourceID) Valid() bool {
	return id == SourceA || id == SourceB
}

// SourceImage is an uploaded campaign image.
type SourceImage struct {
	ID       SourceID `json:"id"`
	Filename string   `json:"filename"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Data     []byte   `json:"-"`
}

// Logo is one entry of the campaign's logo selection.
// Folder and Filename together identify it.
type Logo struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
}

// Key returns the uniqueness key of the logo.
func (l Logo) Key() string {
	return l.Folder + "/" + l.Filename
}

// Tagline is the process-wide tagline default.
type Tagline struct {
	Enabled      bool   `json:"enabled"`
	Text         string `json:"text"`
	FontFilename string `json:"font_filename"`
	FontSize     int    `json:"font_size"`
	Color        string `json:"color"`
	OffsetY      int    `json:"offset_y"`
}

// DefaultTagline mirrors the initial state of the briefing panel.
func DefaultTagline() Tagline {
	return Tagline{
		FontFilename: "Montserrat-Regular.ttf",
		FontSize:     24,
		Color:        "#000000",
		OffsetY:      10,
	}
}

// Active reports whether the tagline should be applied to slots without their own choice.
func (t Tagline) Active() bool {
	return t.Enabled && strings.TrimSpace(t.Text) != ""
}

// BackgroundType selects what fills a slot's canvas.
type BackgroundType string

const (
	BackgroundImage    BackgroundType = "image"
	BackgroundSolid    BackgroundType = "solid"
	BackgroundGradient BackgroundType = "gradient"
)

// ColorFilter recolours a logo while preserving its alpha channel.
type ColorFilter string

const (
	FilterNone  ColorFilter = "none"
	FilterWhite ColorFilter = "white"
	FilterBlack ColorFilter = "black"
)

// Point is a position in editor coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ImageOverride is a manual crop of the source image. X, Y, Width and Height
// are the pixel crop box in source coordinates.
type ImageOverride struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Crop   Point   `json:"crop"`
	Zoom   float64 `json:"zoom"`
}

// Background replaces the source image with a colour fill.
type Background struct {
	Type  BackgroundType `json:"type"`
	Color string         `json:"color,omitempty"`
}

// LogoPlacement positions one logo of the selection. Placements apply to the
// selection positionally: the first placement belongs to the first logo.
type LogoPlacement struct {
	X           int         `json:"x"`
	Y           int         `json:"y"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	ColorFilter ColorFilter `json:"color_filter,omitempty"`
}

// TaglineOverride is a slot's own tagline choice. A value with Enabled false
// is an explicit opt-out and still counts as a choice.
type TaglineOverride struct {
	Tagline
	X *int `json:"x,omitempty"`
	Y *int `json:"y,omitempty"`
}

// Override is the manual edit payload of a slot. Every part is optional.
type Override struct {
	Image      *ImageOverride   `json:"image,omitempty"`
	Background *Background      `json:"background,omitempty"`
	Logos      []LogoPlacement  `json:"logo,omitempty"`
	Tagline    *TaglineOverride `json:"tagline,omitempty"`
}

var ErrInvalidOverride = errors.New("invalid override")

// Validate checks enumerations and geometry.
func (o *Override) Validate() error {
	if o == nil {
		return nil
	}
	if bg := o.Background; bg != nil {
		switch bg.Type {
		case BackgroundImage, BackgroundSolid, BackgroundGradient:
		default:
			return fmt.Errorf("%w: background type %q", ErrInvalidOverride, bg.Type)
		}
		if bg.Type != BackgroundImage && strings.TrimSpace(bg.Color) == "" {
			return fmt.Errorf("%w: %s background needs a color", ErrInvalidOverride, bg.Type)
		}
	}
	if img := o.Image; img != nil {
		if img.Width < 0 || img.Height < 0 {
			return fmt.Errorf("%w: negative crop box", ErrInvalidOverride)
		}
		if img.Zoom < 0 {
			return fmt.Errorf("%w: negative zoom", ErrInvalidOverride)
		}
	}
	for i, p := range o.Logos {
		if p.Width <= 0 {
			return fmt.Errorf("%w: logo %d width must be positive", ErrInvalidOverride, i)
		}
		switch p.ColorFilter {
		case "", FilterNone, FilterWhite, FilterBlack:
		default:
			return fmt.Errorf("%w: logo %d color filter %q", ErrInvalidOverride, i, p.ColorFilter)
		}
	}
	if t := o.Tagline; t != nil && t.FontSize < 0 {
		return fmt.Errorf("%w: negative font size", ErrInvalidOverride)
	}
	return nil
}

// Normalize drops the image crop when the background is not the source image.
func (o *Override) Normalize() {
	if o == nil {
		return
	}
	if o.Background != nil && o.Background.Type != BackgroundImage {
		o.Image = nil
	}
}

// Clone returns a deep copy.
func (o *Override) Clone() *Override {
	if o == nil {
		return nil
	}
	c := &Override{}
	if o.Image != nil {
		img := *o.Image
		c.Image = &img
	}
	if o.Background != nil {
		bg := *o.Background
		c.Background = &bg
	}
	if o.Logos != nil {
		c.Logos = make([]LogoPlacement, len(o.Logos))
		copy(c.Logos, o.Logos)
	}
	if o.Tagline != nil {
		t := *o.Tagline
		if o.Tagline.X != nil {
			x := *o.Tagline.X
			t.X = &x
		}
		if o.Tagline.Y != nil {
			y := *o.Tagline.Y
			t.Y = &y
		}
		c.Tagline = &t
	}
	return c
}

// Equal reports deep equality; two nil overrides are equal.
func (o *Override) Equal(other *Override) bool {
	return reflect.DeepEqual(o, other)
}

// Artifact is a rendered preview.
type Artifact struct {
	Data            []byte         `json:"-"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	CompositionData map[string]any `json:"composition_data,omitempty"`
}
