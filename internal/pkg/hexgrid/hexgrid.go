// Package hexgrid groups points into H3 hexagonal cells for map clustering.
package hexgrid

import (
	"sort"

	h3 "github.com/uber/h3-go/v3"

	"github.com/samirrijal/lokalconnect/internal/pkg/geospatial"
)

const (
	MinResolution = 0
	MaxResolution = 15
)

// Member is a point to be clustered.
type Member struct {
	ID    string
	Point geospatial.Point
}

// Cluster is a set of members sharing an H3 cell.
type Cluster struct {
	Cell    string           `json:"cell"`
	Center  geospatial.Point `json:"center"`
	Count   int              `json:"count"`
	ItemIDs []string         `json:"item_ids"`
}

// ClampResolution keeps res inside the H3 range.
func ClampResolution(res int) int {
	if res < MinResolution {
		return MinResolution
	}
	if res > MaxResolution {
		return MaxResolution
	}
	return res
}

// Cell returns the H3 cell index of p at the given resolution.
func Cell(p geospatial.Point, res int) string {
	return h3.ToString(cellIndex(p, res))
}

func cellIndex(p geospatial.Point, res int) h3.H3Index {
	return h3.FromGeo(h3.GeoCoord{Latitude: p.Lat(), Longitude: p.Lng()}, ClampResolution(res))
}

// Group buckets members by cell. Clusters are ordered by descending count,
// then by cell id.
func Group(members []Member, res int) []Cluster {
	byCell := make(map[h3.H3Index]*Cluster)
	for _, m := range members {
		idx := cellIndex(m.Point, res)
		c, ok := byCell[idx]
		if !ok {
			center := h3.ToGeo(idx)
			c = &Cluster{
				Cell:   h3.ToString(idx),
				Center: geospatial.NewPoint(center.Longitude, center.Latitude),
			}
			byCell[idx] = c
		}
		c.Count++
		c.ItemIDs = append(c.ItemIDs, m.ID)
	}

	out := make([]Cluster, 0, len(byCell))
	for _, c := range byCell {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cell < out[j].Cell
	})
	return out
}
