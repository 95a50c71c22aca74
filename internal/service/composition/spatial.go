package composition

import (
	"mapworkbench/internal/geo"
	"mapworkbench/internal/model"

	"github.com/dhconnelly/rtreego"
)

// compositionSpatial indexes a composition's rectangle in the R-tree
type compositionSpatial struct {
	id     string
	bounds geo.Bounds
}

// Bounds implements rtreego.Spatial
func (c *compositionSpatial) Bounds() rtreego.Rect {
	return rectOf(c.bounds)
}

func rectOf(b geo.Bounds) rtreego.Rect {
	// zero-length sides are rejected by rtreego
	rect, _ := rtreego.NewRect(
		rtreego.Point{b.West, b.South},
		[]float64{max(b.Width(), geo.MinSpan), max(b.Height(), geo.MinSpan)},
	)
	return rect
}

// rebuildIndex replaces the index with one built from list
func (s *Service) rebuildIndex(list []*model.Composition) {
	objs := make([]rtreego.Spatial, len(list))
	for i, c := range list {
		objs[i] = &compositionSpatial{id: c.ID, bounds: c.GeoBounds()}
	}
	s.index = rtreego.NewTree(2, 25, 50, objs...)
}

// InBounds returns the saved compositions whose rectangle intersects b,
// ordered by timestamp
func (s *Service) InBounds(b geo.Bounds) []*model.Composition {
	s.mu.RLock()
	hits := s.index.SearchIntersect(rectOf(b.Normalize()))
	s.mu.RUnlock()

	out := make([]*model.Composition, 0, len(hits))
	for _, h := range hits {
		if c, ok := s.storage.Get(h.(*compositionSpatial).id); ok {
			out = append(out, c.Clone())
		}
	}
	sortByTimestamp(out)
	return out
}
