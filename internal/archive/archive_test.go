package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kimkjin/BannerComposer/internal/composer"
	"github.com/kimkjin/BannerComposer/internal/formats"
	"github.com/kimkjin/BannerComposer/internal/models"
	"github.com/kimkjin/BannerComposer/internal/render"
)

type stubRenderer struct{}

func (stubRenderer) RenderSlot(ctx context.Context, req render.SlotRequest) (models.Artifact, error) {
	return models.Artifact{Data: []byte("jpeg:" + req.Format.Name), Width: req.Format.Width, Height: req.Format.Height}, nil
}

func (stubRenderer) RenderComposite(ctx context.Context, req render.CompositeRequest) (models.Artifact, error) {
	return models.Artifact{Data: []byte("composite"), Width: req.Format.Width, Height: req.Format.Height}, nil
}

func zipNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestFilename(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "summer-2026", want: "images_summer-2026.zip"},
		{id: "black friday/../x", want: "images_black_friday_x.zip"},
		{id: "", want: "images_campaign.zip"},
	}
	for _, tt := range tests {
		if got := Filename(tt.id); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestPackageArtifacts(t *testing.T) {
	name, data, err := PackageArtifacts("c1", map[string][]byte{
		"SLOT2_WEB.jpg": []byte("two"),
		"SLOT1_WEB.jpg": []byte("one"),
	})
	if err != nil {
		t.Fatalf("PackageArtifacts failed: %v", err)
	}
	if name != "images_c1.zip" {
		t.Errorf("Unexpected filename %q", name)
	}
	want := []string{"SLOT1_WEB.jpg", "SLOT2_WEB.jpg", ManifestName}
	if diff := cmp.Diff(want, zipNames(t, data)); diff != "" {
		t.Errorf("zip entries mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := PackageArtifacts("c1", nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
}

func TestCollectAndManifest(t *testing.T) {
	o := composer.New(formats.Default(), stubRenderer{}, composer.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	_ = o.SetSource(models.SourceImage{ID: models.SourceA, Data: []byte("a")})
	_ = o.SetSource(models.SourceImage{ID: models.SourceB, Data: []byte("b")})
	o.AddLogo(models.Logo{Folder: "acme", Filename: "logo.png"})

	ctx := context.Background()
	if _, err := o.GenerateAll(ctx); err != nil {
		t.Fatalf("GenerateAll failed: %v", err)
	}
	override := &models.Override{Logos: []models.LogoPlacement{{X: 1, Y: 1, Width: 50, Height: 20}}}
	if _, err := o.GenerateSingle(ctx, "BRAND_LOGO.jpg", override); err != nil {
		t.Fatalf("GenerateSingle failed: %v", err)
	}
	if _, err := o.ToggleLock("APP_SPLASH.jpg"); err != nil {
		t.Fatalf("ToggleLock failed: %v", err)
	}

	entries, err := Collect(o)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(entries) != 21 {
		t.Fatalf("Expected 21 entries, got %d", len(entries))
	}

	data, err := Package(entries)
	if err != nil {
		t.Fatalf("Package failed: %v", err)
	}
	names := zipNames(t, data)
	if diff := cmp.Diff(append(formats.Default().Slots(), ManifestName), names); diff != "" {
		t.Errorf("zip entries mismatch (-want +got):\n%s", diff)
	}

	rows, err := ReadManifest(data)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(rows) != 21 {
		t.Fatalf("Expected 21 manifest rows, got %d", len(rows))
	}

	bySlot := make(map[string]ManifestRow, len(rows))
	for _, r := range rows {
		bySlot[r.Slot] = r
	}

	brand := bySlot["BRAND_LOGO.jpg"]
	if !brand.HasOverride || brand.Override == "" || brand.Source != "imageA" || brand.Width != 400 {
		t.Errorf("Unexpected BRAND_LOGO row: %+v", brand)
	}
	if !bySlot["APP_SPLASH.jpg"].Locked {
		t.Error("APP_SPLASH should be marked locked")
	}
	entrega := bySlot["ENTREGA.jpg"]
	if !entrega.Composite || entrega.Source != "" || entrega.Size != int64(len("composite")) {
		t.Errorf("Unexpected ENTREGA row: %+v", entrega)
	}
}
