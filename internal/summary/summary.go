// Package summary computes per-month winter growth statistics from a merged
// sea-ice dataset: mean thickness by ice type and percent ice-type
// composition over a regional subset.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/arcticdata/icemerge/internal/domain"
)

// Ice type category values in the ice_type field.
const (
	FirstYearIce = 0
	MultiYearIce = 1
)

// Fields the statistics are computed from.
const (
	thicknessField   = "ice_thickness" + domain.FilledSuffix
	typeField        = "ice_type" + domain.FilledSuffix
	uncertaintyField = "ice_thickness_unc" + domain.FilledSuffix
)

// RestrictRegions returns a copy of ds limited to grid cells whose region
// code is in codes: every other cell becomes NaN in every field. The matching
// region labels are recorded in a "regions with data" dataset attribute.
func RestrictRegions(ds *domain.Dataset, codes []int32) (*domain.Dataset, error) {
	if ds.Region == nil {
		return nil, fmt.Errorf("dataset has no region mask coordinate")
	}
	labels, err := domain.RegionLabelsFor(codes)
	if err != nil {
		return nil, err
	}

	keep := make(map[int32]bool, len(codes))
	for _, c := range codes {
		keep[c] = true
	}

	out := domain.NewDataset(ds.Grid, ds.Time)
	out.Attrs = ds.Attrs.Copy()
	out.Attrs.Set("regions with data", labels)
	if err := out.SetRegionMask(ds.Region); err != nil {
		return nil, err
	}

	cells := ds.Grid.Cells()
	for _, f := range ds.Fields() {
		data := domain.CloneDense(f.Data)
		for t := 0; t < f.Steps(); t++ {
			step := data.Elements[t*cells : (t+1)*cells]
			for i := range step {
				if !keep[ds.Region.Code(i)] {
					step[i] = math.NaN()
				}
			}
		}
		nf, err := f.Derive(f.Name, data, nil)
		if err != nil {
			return nil, err
		}
		if err := out.AddField(nf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Stats holds one scalar per time step for each winter growth statistic.
// A step with zero valid cells holds NaN for every statistic.
type Stats struct {
	Time []time.Time

	MeanThickness    []float64 // all ice types, meters
	MeanMYIThickness []float64 // multi-year ice, meters
	MeanFYIThickness []float64 // first-year ice, meters
	MeanUncertainty  []float64 // thickness uncertainty, meters

	PercentMYI []float64 // share of valid cells typed multi-year, 0-100
	PercentFYI []float64 // share of valid cells typed first-year, 0-100
}

// Compute derives the winter growth statistics from a merged dataset. It
// needs the gap-filled thickness, ice type, and uncertainty fields.
func Compute(ds *domain.Dataset) (*Stats, error) {
	thickness, ok := ds.Field(thicknessField)
	if !ok {
		return nil, fmt.Errorf("dataset has no %s field", thicknessField)
	}
	iceType, ok := ds.Field(typeField)
	if !ok {
		return nil, fmt.Errorf("dataset has no %s field", typeField)
	}
	unc, ok := ds.Field(uncertaintyField)
	if !ok {
		return nil, fmt.Errorf("dataset has no %s field", uncertaintyField)
	}

	nt := len(ds.Time)
	s := &Stats{
		Time:             append([]time.Time(nil), ds.Time...),
		MeanThickness:    make([]float64, nt),
		MeanMYIThickness: make([]float64, nt),
		MeanFYIThickness: make([]float64, nt),
		MeanUncertainty:  make([]float64, nt),
		PercentMYI:       make([]float64, nt),
		PercentFYI:       make([]float64, nt),
	}

	for t := 0; t < nt; t++ {
		th := thickness.Step(t)
		ty := iceType.Step(t)

		s.MeanThickness[t] = nanMean(th, nil, 0)
		s.MeanMYIThickness[t] = nanMean(th, ty, MultiYearIce)
		s.MeanFYIThickness[t] = nanMean(th, ty, FirstYearIce)
		s.MeanUncertainty[t] = nanMean(unc.Step(t), nil, 0)

		valid, myi, fyi := 0, 0, 0
		for i, v := range th {
			if math.IsNaN(v) {
				continue
			}
			valid++
			switch ty[i] {
			case MultiYearIce:
				myi++
			case FirstYearIce:
				fyi++
			}
		}
		if valid == 0 {
			s.PercentMYI[t] = math.NaN()
			s.PercentFYI[t] = math.NaN()
			continue
		}
		s.PercentMYI[t] = 100 * float64(myi) / float64(valid)
		s.PercentFYI[t] = 100 * float64(fyi) / float64(valid)
	}
	return s, nil
}

// nanMean averages the finite values of vals, optionally restricted to cells
// where categories equals category. Returns NaN when nothing qualifies.
func nanMean(vals, categories []float64, category float64) float64 {
	kept := make([]float64, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if categories != nil && categories[i] != category {
			continue
		}
		kept = append(kept, v)
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}

// AttachTo adds the statistics back onto ds as dataset attributes, mirroring
// the auxiliary coordinates the plotting stage expects.
func (s *Stats) AttachTo(ds *domain.Dataset) {
	ds.Attrs.Set("mean_ice_thickness", append([]float64(nil), s.MeanThickness...))
	ds.Attrs.Set("mean_MYI_thickness", append([]float64(nil), s.MeanMYIThickness...))
	ds.Attrs.Set("mean_FYI_thickness", append([]float64(nil), s.MeanFYIThickness...))
	ds.Attrs.Set("mean_ice_thickness_unc", append([]float64(nil), s.MeanUncertainty...))
	ds.Attrs.Set("percent_MYI", append([]float64(nil), s.PercentMYI...))
	ds.Attrs.Set("percent_FYI", append([]float64(nil), s.PercentFYI...))
}

// WriteCSV writes one row per month with every statistic.
func (s *Stats) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"month",
		"mean_ice_thickness_m", "mean_MYI_thickness_m", "mean_FYI_thickness_m",
		"mean_ice_thickness_unc_m", "percent_MYI", "percent_FYI",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for t, month := range s.Time {
		row := []string{
			month.Format("2006-01"),
			formatStat(s.MeanThickness[t]),
			formatStat(s.MeanMYIThickness[t]),
			formatStat(s.MeanFYIThickness[t]),
			formatStat(s.MeanUncertainty[t]),
			formatStat(s.PercentMYI[t]),
			formatStat(s.PercentFYI[t]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
