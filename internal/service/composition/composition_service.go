package composition

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"sync"
	"time"

	"mapworkbench/internal/frame"
	"mapworkbench/internal/model"
	"mapworkbench/internal/service/storage"
	"mapworkbench/internal/service/upload"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNotFound   = errors.New("composition not found")
	ErrNoPolygons = errors.New("no polygons to export")
)

// Service owns the saved compositions. Every mutation rewrites the whole
// list to the backend; the archive, if any, is fed from the dirty flags.
type Service struct {
	backend Backend
	files   FileRemover
	archive Archive

	storage  storage.Storage[string, *model.Composition]
	index    *rtreego.Rtree
	activeID string

	// mu serialises mutations so backend writes land in order
	mu  sync.RWMutex
	now func() time.Time
}

// NewService builds a service; files and archive may be nil
func NewService(backend Backend, files FileRemover, archive Archive) *Service {
	return &Service{
		backend: backend,
		files:   files,
		archive: archive,
		storage: storage.NewMemoryStorage[string, *model.Composition](),
		index:   rtreego.NewTree(2, 25, 50),
		now:     time.Now,
	}
}

// Init loads the archive and then the backend. A backend record overrides
// the archived one when its timestamp is newer.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()

	var archived []*model.Composition
	if s.archive != nil {
		var err error
		archived, err = s.archive.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load compositions from archive: %w", err)
		}
		log.Printf("[COMPOSITION] Loaded %d compositions from archive", len(archived))
	}

	saved, err := s.backend.LoadCompositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load saved compositions: %w", err)
	}
	log.Printf("[COMPOSITION] Loaded %d saved compositions", len(saved))

	for _, c := range archived {
		s.storage.Set(c.ID, c)
	}
	archivedIDs := make([]string, 0, len(archived))
	for _, c := range archived {
		archivedIDs = append(archivedIDs, c.ID)
	}
	s.storage.ClearDirty(archivedIDs)

	merged := 0
	for _, c := range saved {
		existing, ok := s.storage.Get(c.ID)
		if !ok || c.Timestamp > existing.Timestamp {
			s.storage.Set(c.ID, c)
			merged++
		}
	}

	activeID, err := s.backend.LoadActiveID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active composition: %w", err)
	}
	if _, ok := s.storage.Get(activeID); ok {
		s.activeID = activeID
	}

	list := s.sortedLocked()
	s.rebuildIndex(list)

	// bring the backend in line with archive-only records
	if len(saved) != len(list) || merged != len(saved) {
		if err := s.persistLocked(ctx); err != nil {
			return err
		}
	}

	log.Printf("[COMPOSITION] Initialization complete: %d compositions (%d from saved list), took %v",
		len(list), merged, time.Since(startTime))
	return nil
}

func sortByTimestamp(list []*model.Composition) {
	slices.SortFunc(list, func(a, b *model.Composition) int {
		return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), cmp.Compare(a.ID, b.ID))
	})
}

func (s *Service) sortedLocked() []*model.Composition {
	list := s.storage.GetAllValues()
	sortByTimestamp(list)
	return list
}

// persistLocked writes the list and the active id to the backend and
// refreshes the index
func (s *Service) persistLocked(ctx context.Context) error {
	list := s.sortedLocked()
	s.rebuildIndex(list)
	if err := s.backend.SaveCompositions(ctx, list); err != nil {
		return fmt.Errorf("failed to save compositions: %w", err)
	}
	if err := s.backend.SaveActiveID(ctx, s.activeID); err != nil {
		return fmt.Errorf("failed to save active composition: %w", err)
	}
	return nil
}

// rollbackLocked puts back the entry and active id captured before a
// mutation whose backend write failed
func (s *Service) rollbackLocked(id string, prev *model.Composition, activeID string) {
	if prev != nil {
		s.storage.Set(id, prev)
	} else {
		s.storage.Delete(id)
	}
	s.activeID = activeID
	s.rebuildIndex(s.sortedLocked())
}

func (s *Service) nextIDLocked(now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := "img_" + strconv.FormatInt(ms, 10)
		if _, taken := s.storage.Get(id); !taken {
			return id
		}
		ms++
	}
}

func (s *Service) findByURLLocked(url string) (*model.Composition, bool) {
	var found *model.Composition
	s.storage.ForEach(func(_ string, c *model.Composition) bool {
		if c.URL == url {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// Save stores c and makes it active. A record with the same URL is updated
// in place, keeping its id and, when c carries none, its polygons.
func (s *Service) Save(ctx context.Context, c *model.Composition) (*model.Composition, error) {
	c = c.Clone()
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c.Timestamp = now.UnixMilli()
	c.Bounds = model.SerializeBounds(c.GeoBounds())

	var prev *model.Composition
	if existing, ok := s.findByURLLocked(c.URL); ok {
		prev = existing
		c.ID = existing.ID
		if c.Polygons == nil {
			c.Polygons = existing.Clone().Polygons
		}
		log.Printf("[COMPOSITION] Updating %s (%s)", c.ID, c.Name)
	} else {
		c.ID = s.nextIDLocked(now)
		log.Printf("[COMPOSITION] Saving new %s (%s)", c.ID, c.Name)
	}

	prevActive := s.activeID
	s.storage.Set(c.ID, c)
	s.activeID = c.ID
	if err := s.persistLocked(ctx); err != nil {
		s.rollbackLocked(c.ID, prev, prevActive)
		return nil, err
	}
	return c.Clone(), nil
}

// Update replaces the placement fields of an existing record
func (s *Service) Update(ctx context.Context, id string, c *model.Composition) (*model.Composition, error) {
	c = c.Clone()
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.storage.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c.ID = id
	c.Timestamp = s.now().UnixMilli()
	if c.Polygons == nil {
		c.Polygons = existing.Clone().Polygons
	}
	s.storage.Set(id, c)
	if err := s.persistLocked(ctx); err != nil {
		s.rollbackLocked(id, existing, s.activeID)
		return nil, err
	}
	return c.Clone(), nil
}

// SavePolygons replaces the polygons of a record
func (s *Service) SavePolygons(ctx context.Context, id string, polygons []model.PolygonRecord) (*model.Composition, error) {
	for i, p := range polygons {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("polygon %d: %w", i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.storage.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c := existing.Clone()
	c.Polygons = append([]model.PolygonRecord{}, polygons...)
	c.Timestamp = s.now().UnixMilli()
	s.storage.Set(id, c)
	if err := s.persistLocked(ctx); err != nil {
		s.rollbackLocked(id, existing, s.activeID)
		return nil, err
	}
	log.Printf("[COMPOSITION] Saved %d polygons on %s", len(polygons), id)
	return c.Clone(), nil
}

// Get returns a copy of a record
func (s *Service) Get(id string) (*model.Composition, error) {
	c, ok := s.storage.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// List returns every record, oldest first
func (s *Service) List() []*model.Composition {
	s.mu.RLock()
	list := s.sortedLocked()
	s.mu.RUnlock()

	out := make([]*model.Composition, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}

// Active returns the active record, if any
func (s *Service) Active() (*model.Composition, bool) {
	s.mu.RLock()
	id := s.activeID
	s.mu.RUnlock()

	if id == "" {
		return nil, false
	}
	c, err := s.Get(id)
	return c, err == nil
}

// SetActive marks id as active; "" clears the active record
func (s *Service) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if _, ok := s.storage.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	prevActive := s.activeID
	s.activeID = id
	if err := s.backend.SaveActiveID(ctx, id); err != nil {
		s.activeID = prevActive
		return fmt.Errorf("failed to save active composition: %w", err)
	}
	return nil
}

// Delete removes a record and makes a best-effort attempt to delete its
// uploaded file
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.storage.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	prevActive := s.activeID
	s.storage.Delete(id)
	if s.activeID == id {
		s.activeID = ""
	}
	if err := s.persistLocked(ctx); err != nil {
		s.rollbackLocked(id, c, prevActive)
		return err
	}

	if s.files != nil {
		if name := upload.FilenameFromURL(c.URL); name != "" {
			if err := s.files.Delete(name); err != nil {
				log.Printf("[COMPOSITION] Failed to delete file %s of %s: %v", name, id, err)
			}
		}
	}

	log.Printf("[COMPOSITION] Deleted %s", id)
	return nil
}

// Export returns the polygons of a record as GeoJSON with its download name
func (s *Service) Export(id string, now time.Time) (*geojson.FeatureCollection, string, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, "", err
	}
	if len(c.Polygons) == 0 {
		return nil, "", ErrNoPolygons
	}
	fc := frame.ExportPolygons(c.Name, model.RecordsToPolygons(c.Polygons), now)
	return fc, frame.ExportFilename(c.Name), nil
}

// DirtyForArchive returns records changed since the last archive flush
// and the ids deleted since then
func (s *Service) DirtyForArchive() (changed []*model.Composition, deleted []string) {
	for _, id := range s.storage.DirtyKeys() {
		if c, ok := s.storage.Get(id); ok {
			changed = append(changed, c.Clone())
		} else {
			deleted = append(deleted, id)
		}
	}
	return changed, deleted
}

// MarkArchived clears the dirty flags of ids after a successful flush
func (s *Service) MarkArchived(ids []string) {
	s.storage.ClearDirty(ids)
}

// FlushArchive writes dirty records to the archive. It is a no-op without one.
func (s *Service) FlushArchive(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	changed, deleted := s.DirtyForArchive()
	if len(changed) == 0 && len(deleted) == 0 {
		return nil
	}

	if err := s.archive.Save(ctx, changed); err != nil {
		return fmt.Errorf("failed to archive compositions: %w", err)
	}
	if err := s.archive.Delete(ctx, deleted); err != nil {
		return fmt.Errorf("failed to archive deletions: %w", err)
	}

	// records touched again during the flush stay dirty
	ids := make([]string, 0, len(changed)+len(deleted))
	for _, id := range deleted {
		if _, ok := s.storage.Get(id); !ok {
			ids = append(ids, id)
		}
	}
	for _, c := range changed {
		if cur, ok := s.storage.Get(c.ID); ok && cur.Timestamp == c.Timestamp {
			ids = append(ids, c.ID)
		}
	}
	s.MarkArchived(ids)
	log.Printf("[ARCHIVE] Flushed %d changed and %d deleted compositions", len(changed), len(deleted))
	return nil
}
