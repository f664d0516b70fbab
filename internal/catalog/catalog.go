// Package catalog looks up brand logos and tagline fonts on disk. Lookups
// are best-effort: failures are logged and yield empty results.
package catalog

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kimkjin/BannerComposer/internal/images"
	"github.com/kimkjin/BannerComposer/internal/models"
)

// MaxFolders caps folder search results.
const MaxFolders = 10

var ErrLogoNotFound = errors.New("logo not found")

// Entry is one logo file of a folder.
type Entry struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// DataURL encodes the entry for direct use in an <img> tag.
func (e Entry) DataURL() string {
	return "data:" + e.ContentType + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

// Service reads the logo and font directories.
type Service struct {
	LogosDir string
	FontsDir string
	logger   *slog.Logger
}

func New(logosDir, fontsDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		LogosDir: logosDir,
		FontsDir: fontsDir,
		logger:   logger,
	}
}

// ListFolders returns up to MaxFolders brand folders whose name contains
// query, case-insensitively, sorted by name.
func (s *Service) ListFolders(query string) []string {
	dirEntries, err := os.ReadDir(s.LogosDir)
	if err != nil {
		s.logger.Warn("Unable to read logos directory", "dir", s.LogosDir, "err", err)
		return []string{}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	folders := []string{}
	for _, d := range dirEntries {
		if !d.IsDir() {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Name()), q) {
			continue
		}
		folders = append(folders, d.Name())
	}
	sort.Strings(folders)
	if len(folders) > MaxFolders {
		folders = folders[:MaxFolders]
	}
	return folders
}

// ListLogos returns the .png and .svg logos of folder sorted by filename.
// PNG logos have their transparent border trimmed.
func (s *Service) ListLogos(folder string) []Entry {
	dir, ok := s.folderPath(folder)
	if !ok {
		s.logger.Warn("Rejected logo folder", "folder", folder)
		return []Entry{}
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("Unable to read logo folder", "folder", folder, "err", err)
		return []Entry{}
	}

	entries := []Entry{}
	for _, d := range dirEntries {
		if d.IsDir() || contentType(d.Name()) == "" {
			continue
		}
		entry, err := s.readLogo(dir, d.Name())
		if err != nil {
			s.logger.Warn("Skipping unreadable logo", "folder", folder, "filename", d.Name(), "err", err)
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries
}

// Logo loads a single logo for the selection.
func (s *Service) Logo(folder, filename string) (models.Logo, error) {
	dir, ok := s.folderPath(folder)
	if !ok || filename != filepath.Base(filename) || contentType(filename) == "" {
		return models.Logo{}, fmt.Errorf("%w: %s/%s", ErrLogoNotFound, folder, filename)
	}
	entry, err := s.readLogo(dir, filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Logo{}, fmt.Errorf("%w: %s/%s", ErrLogoNotFound, folder, filename)
		}
		return models.Logo{}, err
	}
	return models.Logo{Folder: folder, Filename: filename, Data: entry.Data}, nil
}

// ListFonts returns .ttf and .otf files sorted by name. The query matches the
// base name with dashes read as spaces, case-insensitively.
func (s *Service) ListFonts(query string) []string {
	dirEntries, err := os.ReadDir(s.FontsDir)
	if err != nil {
		s.logger.Warn("Unable to read fonts directory", "dir", s.FontsDir, "err", err)
		return []string{}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	fonts := []string{}
	for _, d := range dirEntries {
		if d.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		if q != "" && !strings.Contains(normalizeFontName(d.Name()), q) {
			continue
		}
		fonts = append(fonts, d.Name())
	}
	sort.Strings(fonts)
	return fonts
}

func normalizeFontName(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return strings.ToLower(strings.ReplaceAll(base, "-", " "))
}

func (s *Service) folderPath(folder string) (string, bool) {
	if folder == "" || folder != filepath.Base(folder) || folder == "." || folder == ".." {
		return "", false
	}
	return filepath.Join(s.LogosDir, folder), true
}

func (s *Service) readLogo(dir, filename string) (Entry, error) {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return Entry{}, err
	}
	ct := contentType(filename)
	if ct == "image/png" {
		data, err = images.TrimTransparent(data)
		if err != nil {
			return Entry{}, err
		}
	}
	return Entry{Filename: filename, ContentType: ct, Data: data}, nil
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	}
	return ""
}
