package composer

import "github.com/kimkjin/BannerComposer/internal/models"

// SlotStatus is the display view of one slot.
type SlotStatus struct {
	Slot         string           `json:"slot"`
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Pair         string           `json:"pair,omitempty"`
	Composite    bool             `json:"composite"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Assignment   models.SourceID  `json:"assignment,omitempty"`
	Locked       bool             `json:"locked"`
	Override     *models.Override `json:"override,omitempty"`
	Preview      *PreviewInfo     `json:"preview,omitempty"`
}

// PreviewInfo describes a cached artifact without its bytes.
type PreviewInfo struct {
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	Size            int              `json:"size"`
	Source          models.SourceID  `json:"source,omitempty"`
	Override        *models.Override `json:"override,omitempty"`
	CompositionData map[string]any   `json:"composition_data,omitempty"`
}

// Snapshot is a consistent read of the whole campaign.
type Snapshot struct {
	Sources []models.SourceImage `json:"sources"`
	Logos   []models.Logo        `json:"logos"`
	Tagline models.Tagline       `json:"tagline"`
	Slots   []SlotStatus         `json:"slots"`
}

// Snapshot returns every slot in catalog order.
func (o *Orchestrator) Snapshot() Snapshot {
	o.state.mu.RLock()
	defer o.state.mu.RUnlock()

	snap := Snapshot{
		Sources: []models.SourceImage{},
		Logos:   append([]models.Logo{}, o.state.logos...),
		Tagline: o.state.tagline,
	}
	for _, id := range []models.SourceID{models.SourceA, models.SourceB} {
		if img, ok := o.state.sources[id]; ok {
			snap.Sources = append(snap.Sources, img)
		}
	}

	for _, f := range o.catalog.Formats() {
		slot := f.Slot()
		status := SlotStatus{
			Slot:      slot,
			Width:     f.Width,
			Height:    f.Height,
			Composite: f.IsComposite(),
			Locked:    o.state.locked[slot],
			Override:  o.state.overrides[slot].Clone(),
		}
		if status.Composite {
			status.Dependencies = o.catalog.Dependencies(slot)
		} else {
			status.Assignment = o.state.assignmentLocked(slot)
		}
		if mirror, ok := o.catalog.Pair(slot); ok {
			status.Pair = mirror
		}
		if p, ok := o.state.previews[slot]; ok {
			status.Preview = &PreviewInfo{
				Width:           p.Artifact.Width,
				Height:          p.Artifact.Height,
				Size:            len(p.Artifact.Data),
				Source:          p.Source,
				Override:        p.Override.Clone(),
				CompositionData: p.Artifact.CompositionData,
			}
		}
		snap.Slots = append(snap.Slots, status)
	}
	return snap
}

// Status returns the view of a single slot.
func (o *Orchestrator) Status(slot string) (SlotStatus, error) {
	slot, _, err := o.resolve(slot)
	if err != nil {
		return SlotStatus{}, err
	}
	for _, s := range o.Snapshot().Slots {
		if s.Slot == slot {
			return s, nil
		}
	}
	return SlotStatus{}, ErrUnknownSlot
}
