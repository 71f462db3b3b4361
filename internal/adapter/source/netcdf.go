// Package source loads the six upstream sea-ice data products from their
// native formats into domain datasets. Sources are opened read-only; a
// missing file for a requested month halts the run.
package source

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// ncVar is one NetCDF variable decoded to float64 with packing applied.
type ncVar struct {
	data  []float64 // row-major
	shape []int
	dims  []string
	attrs api.AttributeMap
}

// size returns the number of elements implied by the shape.
func (v *ncVar) size() int {
	n := 1
	for _, s := range v.shape {
		n *= s
	}
	return n
}

// dense copies the variable into a DenseArray of its own shape.
func (v *ncVar) dense() *sparse.DenseArray {
	out := sparse.ZerosDense(v.shape...)
	copy(out.Elements, v.data)
	return out
}

// readVariable reads a whole variable, replacing fill values with NaN and
// applying scale_factor/add_offset packing if declared.
func readVariable(nc api.Group, name string) (*ncVar, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	data, shape, err := flattenNumeric(raw)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}

	attrs := vg.Attributes()
	if fill, ok := attrFloat(attrs, "_FillValue"); ok {
		replaceWithNaN(data, fill)
	}
	if miss, ok := attrFloat(attrs, "missing_value"); ok {
		replaceWithNaN(data, miss)
	}
	scale, hasScale := attrFloat(attrs, "scale_factor")
	offset, hasOffset := attrFloat(attrs, "add_offset")
	if hasScale || hasOffset {
		if !hasScale {
			scale = 1
		}
		for i, v := range data {
			if !math.IsNaN(v) {
				data[i] = v*scale + offset
			}
		}
	}

	return &ncVar{data: data, shape: shape, dims: vg.Dimensions(), attrs: attrs}, nil
}

func replaceWithNaN(data []float64, sentinel float64) {
	for i, v := range data {
		if v == sentinel {
			data[i] = math.NaN()
		}
	}
}

// flattenNumeric converts the nested numeric slices returned by the NetCDF
// reader into a flat row-major float64 slice plus its shape.
func flattenNumeric(v any) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	var shape []int
	for e := rv; e.Kind() == reflect.Slice; {
		shape = append(shape, e.Len())
		if e.Len() == 0 {
			break
		}
		e = e.Index(0)
	}
	if len(shape) == 0 {
		return nil, nil, fmt.Errorf("value of type %T is not an array", v)
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	out := make([]float64, 0, n)
	out, err := appendFloats(rv, out)
	if err != nil {
		return nil, nil, err
	}
	if len(out) != n {
		return nil, nil, fmt.Errorf("ragged array: %d values for shape %v", len(out), shape)
	}
	return out, shape, nil
}

func appendFloats(rv reflect.Value, out []float64) ([]float64, error) {
	switch rv.Kind() {
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			var err error
			out, err = appendFloats(rv.Index(i), out)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case reflect.Float32, reflect.Float64:
		return append(out, rv.Float()), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return append(out, float64(rv.Int())), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return append(out, float64(rv.Uint())), nil
	default:
		return nil, fmt.Errorf("unsupported element kind %s", rv.Kind())
	}
}

// attrFloat returns a numeric attribute as float64, unwrapping one-element
// arrays.
func attrFloat(am api.AttributeMap, key string) (float64, bool) {
	if am == nil {
		return 0, false
	}
	v, has := am.Get(key)
	if !has {
		return 0, false
	}
	vals, _, err := flattenNumeric(v)
	if err == nil && len(vals) > 0 {
		return vals[0], true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(rv.Int()), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

// attrString returns a string attribute.
func attrString(am api.AttributeMap, key string) (string, bool) {
	if am == nil {
		return "", false
	}
	v, has := am.Get(key)
	if !has {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// copyAttrs transfers the named attributes, or all string and numeric
// attributes when names is nil, from a NetCDF attribute map into domain
// attributes.
func copyAttrs(dst *domain.Attributes, am api.AttributeMap, names []string) {
	if am == nil {
		return
	}
	if names == nil {
		names = am.Keys()
	}
	for _, k := range names {
		v, has := am.Get(k)
		if !has {
			continue
		}
		switch tv := v.(type) {
		case string:
			dst.Set(k, tv)
		default:
			if vals, _, err := flattenNumeric(v); err == nil {
				dst.Set(k, vals)
			}
		}
	}
}

// findMonthlyFile locates the single data file for a month inside dir by the
// YYYYMM stamp in its name. Zero or several matches is an error; monthly
// products carry exactly one file per month.
func findMonthlyFile(dir, pattern string, month time.Time) (string, error) {
	glob := filepath.Join(dir, strings.ReplaceAll(pattern, "{month}", month.Format("200601")))
	matches, err := filepath.Glob(glob)
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("%d files match %s", len(matches), glob)
	}
	return matches[0], nil
}

// decodeTimes converts raw time values plus a CF-style units string
// ("<unit> since <date>") to UTC timestamps.
func decodeTimes(vals []float64, units string) ([]time.Time, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}
	base, err := parseBaseDate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("time units %q: %w", units, err)
	}
	var step time.Duration
	switch strings.TrimSpace(parts[0]) {
	case "seconds":
		step = time.Second
	case "hours":
		step = time.Hour
	case "days":
		step = 24 * time.Hour
	default:
		return nil, fmt.Errorf("unsupported time unit %q", parts[0])
	}
	out := make([]time.Time, len(vals))
	for i, v := range vals {
		out[i] = base.Add(time.Duration(v * float64(step))).UTC()
	}
	return out, nil
}

func parseBaseDate(s string) (time.Time, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}

// readAxis reads a 1-D coordinate variable.
func readAxis(nc api.Group, name string) ([]float64, error) {
	v, err := readVariable(nc, name)
	if err != nil {
		return nil, err
	}
	if len(v.shape) != 1 {
		return nil, fmt.Errorf("axis %q: want 1 dimension, got shape %v", name, v.shape)
	}
	return v.data, nil
}

// readTimeAxis reads and decodes a 1-D time coordinate.
func readTimeAxis(nc api.Group, name string) ([]time.Time, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	units, ok := attrString(vg.Attributes(), "units")
	if !ok {
		return nil, fmt.Errorf("time variable %q has no units attribute", name)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	vals, shape, err := flattenNumeric(raw)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", name, err)
	}
	if len(shape) != 1 {
		return nil, fmt.Errorf("time variable %q: want 1 dimension, got shape %v", name, shape)
	}
	return decodeTimes(vals, units)
}

// monthSteps maps each requested month to its index in a file time axis.
// A month absent from the axis is a MissingInputError.
func monthSteps(axis []time.Time, months []time.Time, source, path string) ([]int, error) {
	byMonth := make(map[time.Time]int, len(axis))
	for i, t := range axis {
		byMonth[monthOf(t)] = i
	}
	out := make([]int, len(months))
	for i, m := range months {
		s, ok := byMonth[monthOf(m)]
		if !ok {
			return nil, &domain.MissingInputError{Source: source, Path: path, Month: m}
		}
		out[i] = s
	}
	return out, nil
}

func shapeEqual(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// monthOf truncates a timestamp to the first of its month, the resolution
// every loader works at.
func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// openGroup opens a NetCDF file (classic or NetCDF4) read-only.
func openGroup(path string) (api.Group, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return nc, nil
}
