// Package geometry derives envelope facts from raw CAD extraction output.
package geometry

import (
	"encoding/json"
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

// Fact keys produced or consumed by Normalize.
const (
	FactBBoxMin    = "bbox_min"
	FactBBoxMax    = "bbox_max"
	FactBBoxX      = "bbox_x_mm"
	FactBBoxY      = "bbox_y_mm"
	FactBBoxZ      = "bbox_z_mm"
	FactBBoxVolume = "bbox_volume_mm3"
	FactVolume     = "volume_mm3"
	FactSurface    = "surface_area_mm2"
)

// Normalize returns a copy of facts with bounding-box dimensions filled in.
// Explicit bbox_*_mm facts always win over values derived from the corner
// points. The input map is never modified.
func Normalize(facts model.PartFacts) model.PartFacts {
	out := facts.Clone()
	if out == nil {
		out = model.PartFacts{}
	}

	bounds, ok := boundsFromCorners(out)
	if ok {
		dims := map[string]float64{
			FactBBoxX: bounds.Max(0) - bounds.Min(0),
			FactBBoxY: bounds.Max(1) - bounds.Min(1),
			FactBBoxZ: bounds.Max(2) - bounds.Min(2),
		}
		for key, v := range dims {
			if !out.Has(key) {
				out[key] = v
			}
		}
	}

	if !out.Has(FactBBoxVolume) {
		if v, ok := BoxVolume(out); ok {
			out[FactBBoxVolume] = v
		}
	}
	return out
}

// BoxVolume is bbox_x * bbox_y * bbox_z when all three are present and positive.
func BoxVolume(facts model.PartFacts) (float64, bool) {
	x, okx := facts.Number(FactBBoxX)
	y, oky := facts.Number(FactBBoxY)
	z, okz := facts.Number(FactBBoxZ)
	if !okx || !oky || !okz || x <= 0 || y <= 0 || z <= 0 {
		return 0, false
	}
	return x * y * z, true
}

func boundsFromCorners(facts model.PartFacts) (*geom.Bounds, bool) {
	lo, ok := point3(facts[FactBBoxMin])
	if !ok {
		return nil, false
	}
	hi, ok := point3(facts[FactBBoxMax])
	if !ok {
		return nil, false
	}
	corners := geom.NewMultiPointFlat(geom.XYZ, append(append([]float64{}, lo...), hi...))
	b := geom.NewBounds(geom.XYZ).Extend(corners)
	if b.IsEmpty() {
		zap.L().Debug("geometry: empty bounds from corners")
		return nil, false
	}
	return b, true
}

// point3 accepts a 3-element array of numbers in any of the shapes JSON or
// YAML decoding produce.
func point3(v any) (geom.Coord, bool) {
	var raw []any
	switch t := v.(type) {
	case []any:
		raw = t
	case []float64:
		raw = make([]any, len(t))
		for i, f := range t {
			raw[i] = f
		}
	default:
		return nil, false
	}
	if len(raw) != 3 {
		return nil, false
	}
	c := make(geom.Coord, 3)
	for i, e := range raw {
		f, ok := toFloat(e)
		if !ok {
			return nil, false
		}
		c[i] = f
	}
	return c, true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
