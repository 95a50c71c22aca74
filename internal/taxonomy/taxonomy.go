package taxonomy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"mapworkbench/internal/annotation"
)

// Category is a room category with its selectable room types
type Category struct {
	Name  string   `json:"category"`
	Types []string `json:"types"`
}

// Taxonomy is the room category/type list and the category colour map
type Taxonomy struct {
	Categories []Category        `json:"categories"`
	Colors     map[string]string `json:"colors"`
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

func meaningful(s string) bool {
	switch s {
	case "", "undefined", "null":
		return false
	}
	return !strings.HasPrefix(s, `"`) && !strings.HasSuffix(s, `"`)
}

// ParseRoomTypes reads a column-oriented CSV: the first row holds the
// category names, each following row holds one room type per category
// column. Categories with fewer than two distinct types are dropped.
func ParseRoomTypes(r io.Reader) ([]Category, error) {
	rows, err := newReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read room types csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("room types csv is empty")
	}

	var categories []Category
	for col, header := range rows[0] {
		name := strings.TrimSpace(header)
		if name == "" {
			continue
		}

		seen := make(map[string]bool)
		var types []string
		for _, row := range rows[1:] {
			if col >= len(row) {
				continue
			}
			t := strings.TrimSpace(row[col])
			if !meaningful(t) || seen[t] {
				continue
			}
			seen[t] = true
			types = append(types, t)
		}

		if len(types) >= 2 {
			categories = append(categories, Category{Name: name, Types: types})
		}
	}
	return categories, nil
}

// ParseRoomColors reads a two-row CSV: category names, then hex colours in
// the same columns. Cells that are not #-prefixed are ignored.
func ParseRoomColors(r io.Reader) (map[string]string, error) {
	rows, err := newReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read room colours csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("room colours csv needs a category row and a colour row")
	}

	colors := make(map[string]string)
	for col, header := range rows[0] {
		name := strings.TrimSpace(header)
		if name == "" || col >= len(rows[1]) {
			continue
		}
		c := strings.TrimSpace(rows[1][col])
		if strings.HasPrefix(c, "#") {
			colors[name] = c
		}
	}
	return colors, nil
}

// ColorFor returns the category's colour or annotation.DefaultColor
func (t *Taxonomy) ColorFor(category string) string {
	if t == nil || len(t.Colors) == 0 {
		return annotation.DefaultColor
	}
	if c, ok := t.Colors[category]; ok {
		return c
	}
	return annotation.DefaultColor
}

// HasType reports whether roomType belongs to category
func (t *Taxonomy) HasType(category, roomType string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Categories {
		if c.Name != category {
			continue
		}
		for _, rt := range c.Types {
			if rt == roomType {
				return true
			}
		}
	}
	return false
}

// Load reads both CSV files. A missing or unreadable file leaves that half
// of the taxonomy empty; the error is logged, not returned.
func Load(typesPath, colorsPath string) *Taxonomy {
	t := &Taxonomy{Colors: map[string]string{}}

	if typesPath != "" {
		if cats, err := parseFile(typesPath, ParseRoomTypes); err != nil {
			log.Printf("[TAXONOMY] Room types not loaded: %v", err)
		} else {
			t.Categories = cats
			log.Printf("[TAXONOMY] Loaded %d room categories from %s", len(cats), typesPath)
		}
	}

	if colorsPath != "" {
		if colors, err := parseFile(colorsPath, ParseRoomColors); err != nil {
			log.Printf("[TAXONOMY] Room colours not loaded: %v", err)
		} else {
			t.Colors = colors
			log.Printf("[TAXONOMY] Loaded %d room colours from %s", len(colors), colorsPath)
		}
	}
	return t
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
