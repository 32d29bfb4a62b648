package vector

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSONReader reads GeoJSON FeatureCollections of Polygon and
// MultiPolygon features. Property values are stringified; Fields is the
// sorted union of property names.
type GeoJSONReader struct{}

// Read implements Reader.
func (GeoJSONReader) Read(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrSourceNotFound, "vector: open geojson %s", path)
		}
		return nil, eris.Wrapf(err, "vector: read geojson %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		var unsupported geojson.ErrUnsupportedType
		if errors.As(err, &unsupported) {
			return nil, eris.Wrapf(ErrUnsupportedFormat, "vector: %s has type %q, want FeatureCollection", path, string(unsupported))
		}
		return nil, eris.Wrapf(err, "vector: decode geojson %s", path)
	}

	seen := make(map[string]bool)
	layer := &Layer{}
	for i, f := range fc.Features {
		mp, err := toMultiPolygon(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: %s feature %d", path, i)
		}

		props := make(map[string]string, len(f.Properties))
		for k, v := range f.Properties {
			if v != nil {
				props[k] = cast.ToString(v)
			} else {
				props[k] = ""
			}
			if !seen[k] {
				seen[k] = true
				layer.Fields = append(layer.Fields, k)
			}
		}
		layer.Features = append(layer.Features, Feature{Properties: props, Geometry: mp})
	}
	sort.Strings(layer.Fields)
	return layer, nil
}
