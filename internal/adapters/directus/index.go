package directus

import (
	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/lokalconnect/internal/core/domain"
	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

// pointTolerance gives indexed centers a non-zero extent so that rtreego
// intersection includes items lying exactly on a query edge.
const pointTolerance = 1e-9

type indexed struct {
	item   domain.Item
	center geospatial.Point
	rect   rtreego.Rect
}

func (e *indexed) Bounds() rtreego.Rect { return e.rect }

// Index is an R-tree over item centers.
type Index struct {
	tree    *rtreego.Rtree
	skipped int
}

// NewIndex builds an index from items. Items without a computable center
// are left out and counted in Skipped.
func NewIndex(items []domain.Item) *Index {
	idx := &Index{tree: rtreego.NewTree(2, 25, 50)}
	for _, item := range items {
		c, err := item.Center()
		if err != nil {
			idx.skipped++
			continue
		}
		idx.tree.Insert(&indexed{
			item:   item,
			center: c,
			rect:   rtreego.Point{c.Lng(), c.Lat()}.ToRect(pointTolerance),
		})
	}
	return idx
}

// Len returns the number of indexed items.
func (idx *Index) Len() int { return idx.tree.Size() }

// Skipped returns how many items had no usable center.
func (idx *Index) Skipped() int { return idx.skipped }

// Search returns items whose center lies inside bbox, edges included.
func (idx *Index) Search(bbox geospatial.BoundingBox) []domain.Item {
	rect, err := rtreego.NewRectFromPoints(
		rtreego.Point{bbox.MinLng(), bbox.MinLat()},
		rtreego.Point{bbox.MaxLng(), bbox.MaxLat()},
	)
	if err != nil {
		return nil
	}

	hits := idx.tree.SearchIntersect(rect)
	out := make([]domain.Item, 0, len(hits))
	for _, h := range hits {
		e := h.(*indexed)
		if bbox.Contains(e.center.Coordinates) {
			out = append(out, e.item)
		}
	}
	return out
}
