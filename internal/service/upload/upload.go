package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"mapworkbench/internal/util"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes is the upload size limit when none is configured
const DefaultMaxBytes = 10 * 1024 * 1024

// URLPrefix is where the uploads directory is served
const URLPrefix = "/uploads/"

var allowedTypes = []string{"image/png", "image/jpeg", "image/webp", "image/jpg"}

var (
	ErrNoFile           = errors.New("no file")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrTooLarge         = errors.New("too large")
	ErrFilenameRequired = errors.New("filename is required")
	ErrBadFilename      = errors.New("bad filename")
	ErrOutsideUploads   = errors.New("invalid file path")
)

// Result describes a stored upload
type Result struct {
	URL          string  `json:"url"`
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"originalName"`
	Size         int64   `json:"size"`
	Type         string  `json:"type"`
	Width        int     `json:"width,omitempty"`
	Height       int     `json:"height,omitempty"`
	AspectRatio  float64 `json:"aspectRatio,omitempty"`
}

// Store writes uploaded images into a single flat directory
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore returns a store rooted at dir; maxBytes <= 0 selects DefaultMaxBytes
func NewStore(dir string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Dir returns the uploads directory
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the size limit
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// EnsureDir creates the uploads directory
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir uploads dir: %w", err)
	}
	return nil
}

// DetectType returns contentType when it is usable, else the type sniffed from data
func DetectType(contentType string, data []byte) string {
	ct := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return mimetype.Detect(data).String()
}

// Allowed reports whether contentType is an accepted image type
func Allowed(contentType string) bool {
	return slices.Contains(allowedTypes, contentType)
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// CheckSize rejects sizes above the limit
func (s *Store) CheckSize(size int64) error {
	if size > s.maxBytes {
		return ErrTooLarge
	}
	return nil
}

// Save validates and writes an upload. contentType may be empty, in which
// case it is sniffed from data.
func (s *Store) Save(originalName, contentType string, data []byte) (*Result, error) {
	if data == nil {
		return nil, ErrNoFile
	}

	ct := DetectType(contentType, data)
	if !Allowed(ct) {
		log.Printf("[UPLOAD] Unsupported file type: %s", ct)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	if err := s.CheckSize(int64(len(data))); err != nil {
		log.Printf("[UPLOAD] File too large: %d", len(data))
		return nil, err
	}

	if err := s.EnsureDir(); err != nil {
		return nil, err
	}

	id, err := util.RandomHex(8)
	if err != nil {
		return nil, fmt.Errorf("generate upload id: %w", err)
	}
	filename := id + "." + extension(ct)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	res := &Result{
		URL:          URLPrefix + filename,
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		Size:         int64(len(data)),
		Type:         ct,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Height > 0 {
		res.Width, res.Height = cfg.Width, cfg.Height
		res.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}

	log.Printf("[UPLOAD] Stored %s as %s (%d bytes)", originalName, filename, res.Size)
	return res, nil
}

// Delete removes an uploaded file by bare filename. A file that is already
// gone is not an error.
func (s *Store) Delete(filename string) error {
	if filename == "" {
		return ErrFilenameRequired
	}
	if strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return ErrBadFilename
	}

	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return fmt.Errorf("resolve uploads dir: %w", err)
	}
	target := filepath.Join(dir, filename)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Printf("[DELETE] Rejected path outside uploads: %s", filename)
		return ErrOutsideUploads
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[DELETE] Ignoring failure to delete %s: %v", filename, err)
	}
	log.Printf("[DELETE] Deleted %s", filename)
	return nil
}

// FilenameFromURL returns the bare filename of an upload URL
func FilenameFromURL(url string) string {
	name := path.Base(url)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
