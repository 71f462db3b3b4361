package domain

import (
	"fmt"
	"strings"
)

// Region codes of the NSIDC Arctic region mask. Keys and labels are ordered
// to match by index.
var (
	RegionCodes = []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 20, 21}

	RegionLabels = []string{
		"non-region oceans",
		"Sea of Okhotsk and Japan",
		"Bering Sea",
		"Hudson Bay",
		"Gulf of St. Lawrence",
		"Baffin Bay, Davis Strait & Labrador Sea",
		"Greenland Sea",
		"Barents Seas",
		"Kara Sea",
		"Laptev Sea",
		"East Siberian Sea",
		"Chukchi Sea",
		"Beaufort Sea",
		"Canadian Archipelago",
		"Arctic Ocean",
		"Land",
		"Coast",
	}
)

// Codes excluded from gap filling: the central Arctic Ocean keeps its data
// holes (no valid neighbors to copy from under the pole) and land never
// carries sea ice.
const (
	RegionArcticOcean int32 = 15
	RegionLand        int32 = 20
	RegionCoast       int32 = 21
)

// InnerArcticRegions is the default regional subset for winter growth
// statistics.
var InnerArcticRegions = []int32{10, 11, 12, 13, 15}

// RegionLabel returns the label for a region code, or "" if unknown.
func RegionLabel(code int32) string {
	for i, c := range RegionCodes {
		if c == code {
			return RegionLabels[i]
		}
	}
	return ""
}

// RegionLabelsFor returns the labels for codes, joined for display, erroring
// on a code outside the enumeration.
func RegionLabelsFor(codes []int32) (string, error) {
	labels := make([]string, 0, len(codes))
	for _, c := range codes {
		l := RegionLabel(c)
		if l == "" {
			return "", fmt.Errorf("unknown region code %d", c)
		}
		labels = append(labels, l)
	}
	return strings.Join(labels, ", "), nil
}

// RegionMask is a static categorical grid of region codes. It is loaded once
// and reused as a coordinate by both pipeline stages, never mutated.
type RegionMask struct {
	Nx, Ny int
	Codes  []int32 // row-major, length Nx*Ny
	Attrs  *Attributes
}

// NewRegionMask validates the code array against the grid shape.
func NewRegionMask(nx, ny int, codes []int32) (*RegionMask, error) {
	if len(codes) != nx*ny {
		return nil, fmt.Errorf("region mask: %d codes for %dx%d grid", len(codes), nx, ny)
	}
	a := NewAttributes()
	a.Set("description", "NSIDC region mask for the Arctic")
	a.Set("keys", append([]int32(nil), RegionCodes...))
	a.Set("labels", strings.Join(RegionLabels, "; "))
	a.Set("note", "keys and labels ordered to match by index")
	return &RegionMask{Nx: nx, Ny: ny, Codes: codes, Attrs: a}, nil
}

// Code returns the region code at flat cell index i.
func (m *RegionMask) Code(i int) int32 { return m.Codes[i] }

// Shape returns the mask's spatial dimensions.
func (m *RegionMask) Shape() []int { return []int{m.Nx, m.Ny} }
