// Package archive packages the Preview Cache into a downloadable zip with a
// parquet manifest describing every slot.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"

	"github.com/parquet-go/parquet-go"

	"github.com/kimkjin/BannerComposer/internal/composer"
)

// ManifestName is the manifest entry inside every archive.
const ManifestName = "manifest.parquet"

var ErrEmpty = errors.New("no rendered previews to package")

// Entry is one packaged slot.
type Entry struct {
	Slot        string
	Source      string
	Width       int
	Height      int
	Locked      bool
	Composite   bool
	Override    []byte
	HasOverride bool
	Data        []byte
}

// ManifestRow is the parquet schema of manifest.parquet.
type ManifestRow struct {
	Slot        string `parquet:"slot"`
	Source      string `parquet:"source"`
	Width       int64  `parquet:"width"`
	Height      int64  `parquet:"height"`
	Size        int64  `parquet:"size"`
	Locked      bool   `parquet:"locked"`
	Composite   bool   `parquet:"composite"`
	HasOverride bool   `parquet:"has_override"`
	Override    string `parquet:"override"`
}

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename returns the archive name for a campaign.
func Filename(campaignID string) string {
	id := unsafeID.ReplaceAllString(campaignID, "_")
	if id == "" {
		id = "campaign"
	}
	return "images_" + id + ".zip"
}

// Collect reads every cached preview of o in catalog order.
func Collect(o *composer.Orchestrator) ([]Entry, error) {
	snap := o.Snapshot()
	previews := o.State().Previews()

	var entries []Entry
	for _, s := range snap.Slots {
		p, ok := previews[s.Slot]
		if !ok {
			continue
		}
		e := Entry{
			Slot:      s.Slot,
			Source:    string(p.Source),
			Width:     p.Artifact.Width,
			Height:    p.Artifact.Height,
			Locked:    s.Locked,
			Composite: s.Composite,
			Data:      p.Artifact.Data,
		}
		if s.Override != nil {
			raw, err := json.Marshal(s.Override)
			if err != nil {
				return nil, fmt.Errorf("failed to encode override of %s: %w", s.Slot, err)
			}
			e.Override = raw
			e.HasOverride = true
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Package writes entries and their manifest into a zip archive.
func Package(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	rows := make([]ManifestRow, 0, len(entries))
	for _, e := range entries {
		w, err := zw.Create(e.Slot)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", e.Slot, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", e.Slot, err)
		}
		rows = append(rows, ManifestRow{
			Slot:        e.Slot,
			Source:      e.Source,
			Width:       int64(e.Width),
			Height:      int64(e.Height),
			Size:        int64(len(e.Data)),
			Locked:      e.Locked,
			Composite:   e.Composite,
			HasOverride: e.HasOverride,
			Override:    string(e.Override),
		})
	}

	w, err := zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest entry: %w", err)
	}
	if err := writeManifest(w, rows); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

// PackageArtifacts packages raw slot artifacts, sorted by slot name, and
// returns the archive filename with its bytes.
func PackageArtifacts(campaignID string, artifacts map[string][]byte) (string, []byte, error) {
	slots := make([]string, 0, len(artifacts))
	for slot := range artifacts {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	entries := make([]Entry, 0, len(slots))
	for _, slot := range slots {
		entries = append(entries, Entry{Slot: slot, Data: artifacts[slot]})
	}
	data, err := Package(entries)
	if err != nil {
		return "", nil, err
	}
	return Filename(campaignID), data, nil
}

func writeManifest(w io.Writer, rows []ManifestRow) error {
	pw := parquet.NewGenericWriter[ManifestRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write manifest rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close manifest writer: %w", err)
	}
	return nil
}

// ReadManifest extracts and decodes manifest.parquet from a packaged archive.
func ReadManifest(archive []byte) ([]ManifestRow, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	f, err := zr.Open(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ManifestRow](pf)
	defer reader.Close()

	var records []ManifestRow
	rows := make([]ManifestRow, 32)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read manifest rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return records, nil
}
