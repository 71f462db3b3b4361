// Command validate performs integrity checks on a merged sea ice container:
// structure, provenance attributes, region mask enumeration, physical value
// ranges, and consistency of the derived winter growth statistics.
//
// Usage:
//
//	go run ./cmd/validate -merged output/icesat2-book-data.nc
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/arcticdata/icemerge/internal/adapter/container"
	"github.com/arcticdata/icemerge/internal/domain"
	"github.com/arcticdata/icemerge/internal/summary"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	merged := flag.String("merged", "", "path to the merged container")
	flag.Parse()

	if *merged == "" {
		flag.Usage()
		os.Exit(1)
	}
	if code := run(*merged); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Merged Container Integrity Validation ===")
	fmt.Println()

	ds, err := container.Read(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load merged container: %v\n", err)
		return 1
	}
	fmt.Printf("Loaded %s: %d months, %dx%d grid, %d fields\n",
		path, len(ds.Time), ds.Grid.Nx(), ds.Grid.Ny(), len(ds.FieldNames()))

	phases := []*phase{
		validateStructure(ds),
		validateProvenance(ds),
		validateRegions(ds),
		validatePhysicalRanges(ds),
		validateStatistics(ds),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// The time axis must be monotonic first-of-month stamps and every field must
// sit on the shared grid.

func validateStructure(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 1: Structure (axes and shapes)"}

	if len(ds.Time) == 0 {
		p.errorf("empty time axis")
	}
	for i, t := range ds.Time {
		if t.Day() != 1 {
			p.errorf("time step %d (%s) is not the first of a month", i, t.Format("2006-01-02"))
		}
		if i > 0 && !ds.Time[i-1].Before(t) {
			p.errorf("time axis not increasing at step %d (%s)", i, t.Format("2006-01"))
		}
	}

	for i := 0; i < ds.Grid.Cells(); i++ {
		la, lo := ds.Grid.Lat.Elements[i], ds.Grid.Lon.Elements[i]
		if la < -90 || la > 90 {
			p.errorf("cell %d: latitude %g out of range", i, la)
			break
		}
		if lo < -180 || lo > 360 {
			p.errorf("cell %d: longitude %g out of range", i, lo)
			break
		}
	}

	want := []int{len(ds.Time), ds.Grid.Nx(), ds.Grid.Ny()}
	for _, f := range ds.Fields() {
		got := f.Data.Shape
		if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			p.errorf("field %s: shape %v, want %v", f.Name, got, want)
		}
	}
	return p
}

// ── Phase 2: Provenance ──

func validateProvenance(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 2: Provenance (attributes)"}

	for _, key := range []string{"description", "creation date"} {
		if !ds.Attrs.Has(key) {
			p.errorf("dataset missing %q attribute", key)
		}
	}
	for _, f := range ds.Fields() {
		for _, key := range []string{"long_name", "units"} {
			if !f.Attrs.Has(key) {
				p.errorf("field %s missing %q attribute", f.Name, key)
			}
		}
	}
	if ds.Region != nil {
		for _, key := range []string{"keys", "labels"} {
			if !ds.Region.Attrs.Has(key) {
				p.errorf("region mask missing %q attribute", key)
			}
		}
	}
	return p
}

// ── Phase 3: Region Enumeration ──

func validateRegions(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 3: Region Enumeration (mask codes)"}

	if ds.Region == nil {
		p.errorf("container has no region_mask variable")
		return p
	}
	seen := map[int32]int{}
	for _, c := range ds.Region.Codes {
		seen[c]++
	}
	for c, n := range seen {
		if domain.RegionLabel(c) == "" {
			p.errorf("unknown region code %d on %d cells", c, n)
		}
	}
	return p
}

// ── Phase 4: Physical Ranges ──

func validatePhysicalRanges(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 4: Physical Ranges (values)"}

	if conc, ok := ds.Field("seaice_conc_monthly_cdr"); ok {
		for i, v := range conc.Data.Elements {
			if !math.IsNaN(v) && (v < 0 || v > 1) {
				p.errorf("concentration element %d: %g outside [0, 1]", i, v)
				break
			}
		}
	} else {
		p.errorf("container has no concentration field")
	}

	for _, name := range []string{"ice_thickness", "ice_thickness" + domain.FilledSuffix} {
		f, ok := ds.Field(name)
		if !ok {
			p.errorf("container has no %s field", name)
			continue
		}
		for i, v := range f.Data.Elements {
			if !math.IsNaN(v) && v < 0 {
				p.errorf("%s element %d: negative thickness %g", name, i, v)
				break
			}
		}
	}

	// A filled companion must never lose values its original had.
	for _, name := range domain.AltimetryVariables {
		orig, ok1 := ds.Field(name)
		filled, ok2 := ds.Field(name + domain.FilledSuffix)
		if !ok1 || !ok2 {
			p.errorf("field pair %s / %s%s incomplete", name, name, domain.FilledSuffix)
			continue
		}
		for t := 0; t < len(ds.Time); t++ {
			if filled.CountValid(t) < orig.CountValid(t) {
				p.errorf("%s%s step %d: fewer valid cells than original", name, domain.FilledSuffix, t)
			}
		}
	}
	return p
}

// ── Phase 5: Statistics Consistency ──
// Ice type percentages must account for every valid cell.

func validateStatistics(ds *domain.Dataset) *phase {
	p := &phase{name: "Phase 5: Statistics Consistency"}

	restricted, err := summary.RestrictRegions(ds, domain.InnerArcticRegions)
	if err != nil {
		p.errorf("restricting regions: %v", err)
		return p
	}
	stats, err := summary.Compute(restricted)
	if err != nil {
		p.errorf("computing statistics: %v", err)
		return p
	}
	for t := range stats.Time {
		myi, fyi := stats.PercentMYI[t], stats.PercentFYI[t]
		if math.IsNaN(myi) != math.IsNaN(fyi) {
			p.errorf("step %d: one ice type percentage is NaN, the other not", t)
			continue
		}
		if math.IsNaN(myi) {
			continue
		}
		if sum := myi + fyi; sum > 100+1e-9 {
			p.errorf("step %d: ice type percentages sum to %g", t, sum)
		}
		if mean := stats.MeanThickness[t]; !math.IsNaN(mean) && mean < 0 {
			p.errorf("step %d: negative mean thickness %g", t, mean)
		}
	}
	return p
}
