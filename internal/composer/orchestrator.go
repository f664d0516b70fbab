// Package composer tracks every output slot of a campaign and decides which
// slots are sent to the rendering gateway, in what order, and how results are
// merged back into the Preview Cache.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kimkjin/BannerComposer/internal/formats"
	"github.com/kimkjin/BannerComposer/internal/models"
	"github.com/kimkjin/BannerComposer/internal/render"
)

const DefaultConcurrency = 8

type Options struct {
	// Concurrency bounds parallel render calls; <= 0 uses DefaultConcurrency.
	Concurrency int
	Logger      *slog.Logger
}

// Orchestrator is the single writer of the Preview Cache.
type Orchestrator struct {
	catalog     *formats.Catalog
	renderer    render.Renderer
	state       *State
	concurrency int
	logger      *slog.Logger
}

func New(catalog *formats.Catalog, renderer render.Renderer, opts Options) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		catalog:     catalog,
		renderer:    renderer,
		state:       NewState(),
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// State returns the container read by the display layer.
func (o *Orchestrator) State() *State {
	return o.state
}

func (o *Orchestrator) Catalog() *formats.Catalog {
	return o.catalog
}

// slotJob is one render request with the stored override snapshot it was built from.
type slotJob struct {
	slot      string
	format    formats.Format
	source    models.SourceImage
	snapshot  *models.Override
	effective *models.Override
	// generation of the state the job was built from
	generation uint64
}

// effectiveOverride applies the tagline default to slots without their own tagline choice.
func effectiveOverride(stored *models.Override, tagline models.Tagline) *models.Override {
	eff := stored.Clone()
	if !tagline.Active() || (eff != nil && eff.Tagline != nil) {
		return eff
	}
	if eff == nil {
		eff = &models.Override{}
	}
	eff.Tagline = &models.TaglineOverride{Tagline: tagline}
	return eff
}

// resolve normalizes slot and returns its format.
func (o *Orchestrator) resolve(slot string) (string, formats.Format, error) {
	f, ok := o.catalog.Lookup(slot)
	if !ok {
		return "", formats.Format{}, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	return f.Slot(), f, nil
}

// GenerateAll renders every unlocked slot from its assignment, stored
// override and the tagline default. Locked slots keep their preview. Cached
// previews stay in place until a new result overwrites them.
func (o *Orchestrator) GenerateAll(ctx context.Context) (*Report, error) {
	rep := &reporter{}

	o.state.mu.RLock()
	var missing []string
	for _, id := range []models.SourceID{models.SourceA, models.SourceB} {
		if _, ok := o.state.sources[id]; !ok {
			missing = append(missing, string(id))
		}
	}
	if len(missing) > 0 {
		o.state.mu.RUnlock()
		return nil, fmt.Errorf("%w: missing source image %s", ErrPreconditionNotMet, strings.Join(missing, ", "))
	}
	if len(o.state.logos) == 0 {
		o.state.mu.RUnlock()
		return nil, fmt.Errorf("%w: no logo selected", ErrPreconditionNotMet)
	}

	logos := append([]models.Logo(nil), o.state.logos...)
	tagline := o.state.tagline
	var jobs []slotJob
	for _, f := range o.catalog.Formats() {
		slot := f.Slot()
		if o.state.locked[slot] {
			rep.locked(slot)
			continue
		}
		if f.IsComposite() {
			continue
		}
		stored := o.state.overrides[slot]
		jobs = append(jobs, slotJob{
			slot:       slot,
			format:     f,
			source:     o.state.sources[o.state.assignmentLocked(slot)],
			snapshot:   stored.Clone(),
			effective:  effectiveOverride(stored, tagline),
			generation: o.state.generation,
		})
	}
	o.state.mu.RUnlock()

	o.logger.Info("Generating all slots", "slots", len(jobs), "logos", len(logos), "tagline", tagline.Active())
	o.renderSlots(ctx, jobs, logos, rep)

	var composites []string
	for _, composite := range o.catalog.Composites() {
		if o.state.Locked(composite) {
			continue
		}
		deps := o.catalog.Dependencies(composite)
		touched := false
		ready := true
		for _, dep := range deps {
			if rep.hasFailed(dep) {
				ready = false
				break
			}
			if rep.wasRendered(dep) {
				touched = true
			}
		}
		if ready && touched && o.dependenciesCached(composite) {
			composites = append(composites, composite)
		}
	}
	o.renderComposites(ctx, composites, rep)

	report := rep.report(o.catalog)
	if !report.OK() {
		o.logger.Warn("Generation finished with failures", "rendered", len(report.Rendered), "failed", len(report.Failed))
	}
	return report, nil
}

// GenerateSingle saves override for slot and its mirror, then re-renders both.
// Composites depending on a successfully re-rendered slot are recomputed once
// all of their dependencies are cached.
func (o *Orchestrator) GenerateSingle(ctx context.Context, slot string, override *models.Override) (*Report, error) {
	slot, format, err := o.resolve(slot)
	if err != nil {
		return nil, err
	}
	if format.IsComposite() {
		return nil, fmt.Errorf("%w: %s", ErrCompositeSlot, slot)
	}
	if err := override.Validate(); err != nil {
		return nil, err
	}
	saved := override.Clone()
	if saved == nil {
		saved = &models.Override{}
	}
	saved.Normalize()

	rep := &reporter{}
	mirror, hasMirror := o.catalog.Pair(slot)

	o.state.mu.Lock()
	if len(o.state.logos) == 0 {
		o.state.mu.Unlock()
		return nil, fmt.Errorf("%w: no logo selected", ErrPreconditionNotMet)
	}
	sourceID := o.state.assignmentLocked(slot)
	if _, ok := o.state.sources[sourceID]; !ok {
		o.state.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is assigned to %s which is not uploaded", ErrPreconditionNotMet, slot, sourceID)
	}

	targets := []string{slot}
	o.state.overrides[slot] = saved.Clone()
	if hasMirror {
		o.state.overrides[mirror] = saved.Clone()
		targets = append(targets, mirror)
	}

	logos := append([]models.Logo(nil), o.state.logos...)
	tagline := o.state.tagline
	var jobs []slotJob
	for _, target := range targets {
		f, _ := o.catalog.Lookup(target)
		src, ok := o.state.sources[o.state.assignmentLocked(target)]
		if !ok {
			rep.skipped(target)
			continue
		}
		stored := o.state.overrides[target]
		jobs = append(jobs, slotJob{
			slot:       target,
			format:     f,
			source:     src,
			snapshot:   stored.Clone(),
			effective:  effectiveOverride(stored, tagline),
			generation: o.state.generation,
		})
	}
	o.state.mu.Unlock()

	o.logger.Info("Generating slot", "slot", slot, "mirror", mirror)
	o.renderSlots(ctx, jobs, logos, rep)

	var succeeded []string
	for _, target := range targets {
		if rep.wasRendered(target) {
			succeeded = append(succeeded, target)
		}
	}

	var composites []string
	for _, composite := range o.catalog.DependentComposites(succeeded...) {
		if o.dependenciesCached(composite) {
			composites = append(composites, composite)
		}
	}
	o.renderComposites(ctx, composites, rep)

	return rep.report(o.catalog), nil
}

func (o *Orchestrator) dependenciesCached(composite string) bool {
	o.state.mu.RLock()
	defer o.state.mu.RUnlock()
	for _, dep := range o.catalog.Dependencies(composite) {
		if _, ok := o.state.previews[dep]; !ok {
			return false
		}
	}
	return true
}

// renderSlots dispatches jobs in parallel. Each result is merged as soon as it
// arrives, independent of the other jobs.
func (o *Orchestrator) renderSlots(ctx context.Context, jobs []slotJob, logos []models.Logo, rep *reporter) {
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for _, job := range jobs {
		g.Go(func() error {
			artifact, err := o.renderer.RenderSlot(ctx, render.SlotRequest{
				Format:   job.format,
				Source:   job.source,
				Logos:    logos,
				Override: job.effective,
			})
			if err != nil {
				o.logger.Warn("Slot render failed", "slot", job.slot, "err", err)
				rep.failed(job.slot, err)
				return nil
			}

			committed := o.state.commit(job.slot, job.generation, job.snapshot, Preview{
				Artifact: artifact,
				Override: job.effective,
				Source:   job.source.ID,
			})
			if !committed {
				o.logger.Debug("Discarding stale render", "slot", job.slot)
				rep.stale(job.slot)
				return nil
			}
			rep.rendered(job.slot)
			return nil
		})
	}

	_ = g.Wait()
}

// renderComposites renders each composite from the cached artifacts of its
// dependencies, in dependency order.
func (o *Orchestrator) renderComposites(ctx context.Context, composites []string, rep *reporter) {
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for _, composite := range composites {
		g.Go(func() error {
			f, _ := o.catalog.Lookup(composite)

			req := render.CompositeRequest{Format: f}
			o.state.mu.RLock()
			generation := o.state.generation
			for _, dep := range o.catalog.Dependencies(composite) {
				p, ok := o.state.previews[dep]
				if !ok {
					o.state.mu.RUnlock()
					rep.failed(composite, fmt.Errorf("%w: %s", render.ErrMissingComponent, dep))
					return nil
				}
				req.Components = append(req.Components, render.Component{Slot: dep, Artifact: p.Artifact})
			}
			o.state.mu.RUnlock()

			artifact, err := o.renderer.RenderComposite(ctx, req)
			if err != nil {
				o.logger.Warn("Composite render failed", "slot", composite, "err", err)
				rep.failed(composite, err)
				return nil
			}
			if !o.state.commitComposite(composite, generation, req.Components, artifact) {
				o.logger.Debug("Discarding stale composite", "slot", composite)
				rep.stale(composite)
				return nil
			}
			rep.composite(composite)
			return nil
		})
	}

	_ = g.Wait()
}

// ToggleLock flips the lock of slot and returns the new value.
func (o *Orchestrator) ToggleLock(slot string) (bool, error) {
	slot, _, err := o.resolve(slot)
	if err != nil {
		return false, err
	}
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	if o.state.locked[slot] {
		delete(o.state.locked, slot)
		return false, nil
	}
	o.state.locked[slot] = true
	return true, nil
}

// SetAssignment points slot at a source image. Locked slots accept the change
// and pick it up once unlocked and regenerated.
func (o *Orchestrator) SetAssignment(slot string, id models.SourceID) error {
	slot, f, err := o.resolve(slot)
	if err != nil {
		return err
	}
	if f.IsComposite() {
		return fmt.Errorf("%w: %s", ErrCompositeSlot, slot)
	}
	if !id.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, id)
	}
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	o.state.assignments[slot] = id
	return nil
}

// AssignAllTo points every non-composite slot at id.
func (o *Orchestrator) AssignAllTo(id models.SourceID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, id)
	}
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	if _, ok := o.state.sources[id]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingSource, id)
	}
	for _, slot := range o.catalog.Renderable() {
		o.state.assignments[slot] = id
	}
	return nil
}

// SetSource stores an uploaded source image, replacing any previous upload.
func (o *Orchestrator) SetSource(img models.SourceImage) error {
	if !img.ID.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, img.ID)
	}
	if len(img.Data) == 0 {
		return fmt.Errorf("source image %s is empty", img.ID)
	}
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	o.state.sources[img.ID] = img
	return nil
}

// AddLogo appends logo to the selection. It returns false when a logo with
// the same folder and filename is already selected.
func (o *Orchestrator) AddLogo(logo models.Logo) bool {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	for _, l := range o.state.logos {
		if l.Key() == logo.Key() {
			return false
		}
	}
	o.state.logos = append(o.state.logos, logo)
	return true
}

// RemoveLogo drops a logo from the selection, keeping the order of the rest.
func (o *Orchestrator) RemoveLogo(folder, filename string) bool {
	key := models.Logo{Folder: folder, Filename: filename}.Key()
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	for i, l := range o.state.logos {
		if l.Key() == key {
			o.state.logos = append(o.state.logos[:i:i], o.state.logos[i+1:]...)
			return true
		}
	}
	return false
}

// SetTagline replaces the process-wide tagline default. Slots with their own
// tagline choice keep it.
func (o *Orchestrator) SetTagline(t models.Tagline) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()
	o.state.tagline = t
}

// Reset discards the whole campaign.
func (o *Orchestrator) Reset() {
	o.state.Reset()
}
