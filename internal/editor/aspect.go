package editor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
)

var ErrUnknownAspect = errors.New("cannot determine logo aspect ratio")

// AspectRatio returns width/height of a raster logo or an SVG document.
func AspectRatio(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, ErrUnknownAspect
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if cfg.Height == 0 {
			return 0, ErrUnknownAspect
		}
		return float64(cfg.Width) / float64(cfg.Height), nil
	}
	return svgAspect(data)
}

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

func svgAspect(data []byte) (float64, error) {
	var root svgRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownAspect, err)
	}

	if fields := strings.Fields(strings.ReplaceAll(root.ViewBox, ",", " ")); len(fields) == 4 {
		w, errW := strconv.ParseFloat(fields[2], 64)
		h, errH := strconv.ParseFloat(fields[3], 64)
		if errW == nil && errH == nil && w > 0 && h > 0 {
			return w / h, nil
		}
	}

	w, errW := parseLength(root.Width)
	h, errH := parseLength(root.Height)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, ErrUnknownAspect
	}
	return w / h, nil
}

// parseLength accepts plain numbers and px values.
func parseLength(v string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
}
