package composer

import (
	"bytes"
	"sync"

	"github.com/kimkjin/BannerComposer/internal/models"
	"github.com/kimkjin/BannerComposer/internal/render"
)

// Preview is a Preview Cache entry: the last rendered artifact of a slot and
// the effective override that produced it.
type Preview struct {
	Artifact models.Artifact
	Override *models.Override
	Source   models.SourceID
}

// State is the campaign state container: sources, assignments, the Override
// Store, the Lock Set, the Preview Cache, the logo selection and the tagline
// default. Only the Orchestrator writes previews.
type State struct {
	mu          sync.RWMutex
	sources     map[models.SourceID]models.SourceImage
	assignments map[string]models.SourceID
	overrides   map[string]*models.Override
	locked      map[string]bool
	previews    map[string]Preview
	logos       []models.Logo
	tagline     models.Tagline

	// generation changes on every reset; renders submitted under an older
	// generation are never committed.
	generation uint64
}

func NewState() *State {
	s := &State{}
	s.reset()
	return s
}

func (s *State) reset() {
	s.sources = make(map[models.SourceID]models.SourceImage)
	s.assignments = make(map[string]models.SourceID)
	s.overrides = make(map[string]*models.Override)
	s.locked = make(map[string]bool)
	s.previews = make(map[string]Preview)
	s.logos = nil
	s.tagline = models.DefaultTagline()
	s.generation++
}

// Reset discards every piece of state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// assignmentLocked returns the slot's source, defaulting to the first image.
// Callers must hold s.mu.
func (s *State) assignmentLocked(slot string) models.SourceID {
	if id, ok := s.assignments[slot]; ok {
		return id
	}
	return models.SourceA
}

func (s *State) Source(id models.SourceID) (models.SourceImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.sources[id]
	return img, ok
}

func (s *State) Sources() []models.SourceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SourceImage
	for _, id := range []models.SourceID{models.SourceA, models.SourceB} {
		if img, ok := s.sources[id]; ok {
			out = append(out, img)
		}
	}
	return out
}

func (s *State) Assignment(slot string) models.SourceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignmentLocked(slot)
}

// Override returns a copy of the stored override of slot.
func (s *State) Override(slot string) (*models.Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[slot]
	return o.Clone(), ok
}

func (s *State) Locked(slot string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked[slot]
}

// Preview returns the cached preview of slot.
func (s *State) Preview(slot string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[slot]
	return p, ok
}

// Previews returns a copy of the Preview Cache.
func (s *State) Previews() map[string]Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Preview, len(s.previews))
	for k, v := range s.previews {
		out[k] = v
	}
	return out
}

func (s *State) Logos() []models.Logo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Logo(nil), s.logos...)
}

func (s *State) Tagline() models.Tagline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tagline
}

// commit merges a slot render into the Preview Cache unless the state was
// reset or the stored override moved on since the request was submitted.
func (s *State) commit(slot string, generation uint64, snapshot *models.Override, p Preview) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || !s.overrides[slot].Equal(snapshot) {
		return false
	}
	s.previews[slot] = p
	return true
}

// commitComposite merges a composite render only if every component it was
// built from is still the cached artifact of its slot.
func (s *State) commitComposite(slot string, generation uint64, components []render.Component, artifact models.Artifact) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return false
	}
	for _, c := range components {
		p, ok := s.previews[c.Slot]
		if !ok || !bytes.Equal(p.Artifact.Data, c.Artifact.Data) {
			return false
		}
	}
	s.previews[slot] = Preview{Artifact: artifact}
	return true
}
