package overlay

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/olablt/gio-fieldmap/tiles"
	"github.com/olablt/gio-fieldmap/viewport"
)

// Polygon is a finished field boundary in the screen space it was drawn in.
type Polygon struct {
	ID     uuid.UUID
	Points []tiles.Point
	Area   float64 // square pixels
}

// Geo converts the outline to lon/lat through vp, closing the ring.
func (p *Polygon) Geo(vp *viewport.Viewport) orb.Polygon {
	ring := make(orb.Ring, 0, len(p.Points)+1)
	for _, pt := range p.Points {
		ll := vp.ScreenToGeo(pt)
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}
}

// AreaMeters approximates the ground area in square meters using the
// resolution at the viewport's center latitude.
func (p *Polygon) AreaMeters(vp *viewport.Viewport) float64 {
	mpp := vp.Projection().MetersPerPixel(vp.Center().Lat, vp.Zoom())
	return p.Area * mpp * mpp
}

// Feature returns the polygon as a GeoJSON feature.
func (p *Polygon) Feature(vp *viewport.Viewport) *geojson.Feature {
	f := geojson.NewFeature(p.Geo(vp))
	f.ID = p.ID.String()
	f.Properties["area_px"] = p.Area
	f.Properties["area_m2"] = p.AreaMeters(vp)
	f.Properties["zoom"] = vp.Zoom()
	return f
}
