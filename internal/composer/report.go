package composer

import (
	"errors"
	"sort"
	"sync"

	"github.com/kimkjin/BannerComposer/internal/formats"
)

// Report describes how a generation pass settled. Failures never roll back
// the slots listed in Rendered.
type Report struct {
	Rendered   []string          `json:"rendered"`
	Composites []string          `json:"composites,omitempty"`
	Failed     map[string]string `json:"failed,omitempty"`
	Locked     []string          `json:"locked,omitempty"`
	Skipped    []string          `json:"skipped,omitempty"`
	Stale      []string          `json:"stale,omitempty"`

	errs []error
}

// Err joins every per-slot *RenderError, or returns nil when nothing failed.
func (r *Report) Err() error {
	return errors.Join(r.errs...)
}

// OK reports whether every dispatched render was committed.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

type reporter struct {
	mu  sync.Mutex
	rep Report
}

func (r *reporter) rendered(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Rendered = append(r.rep.Rendered, slot)
}

func (r *reporter) composite(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Composites = append(r.rep.Composites, slot)
}

func (r *reporter) failed(slot string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rep.Failed == nil {
		r.rep.Failed = make(map[string]string)
	}
	rerr := &RenderError{Slot: slot, Err: err}
	r.rep.Failed[slot] = err.Error()
	r.rep.errs = append(r.rep.errs, rerr)
}

func (r *reporter) locked(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Locked = append(r.rep.Locked, slot)
}

func (r *reporter) skipped(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Skipped = append(r.rep.Skipped, slot)
}

func (r *reporter) stale(slot string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Stale = append(r.rep.Stale, slot)
}

func (r *reporter) hasFailed(slot string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rep.Failed[slot]
	return ok
}

func (r *reporter) wasRendered(slot string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rep.Rendered {
		if s == slot {
			return true
		}
	}
	return false
}

// report returns the settled report with every list in catalog order.
func (r *reporter) report(c *formats.Catalog) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.rep
	for _, list := range [][]string{rep.Rendered, rep.Composites, rep.Locked, rep.Skipped, rep.Stale} {
		sort.SliceStable(list, func(i, j int) bool {
			a, _ := c.Position(list[i])
			b, _ := c.Position(list[j])
			return a < b
		})
	}
	if rep.Rendered == nil {
		rep.Rendered = []string{}
	}
	return &rep
}
