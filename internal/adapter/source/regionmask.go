package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ctessum/sparse"

	"github.com/arcticdata/icemerge/internal/domain"
)

// RegionMaskLoader reads the NSIDC Arctic region mask and its companion
// coordinate files. The mask is a flat byte array of region codes; the
// coordinates are little-endian int32 arrays of degrees scaled by 1e5.
type RegionMaskLoader struct {
	MaskPath string
	LatPath  string
	LonPath  string
	Nx       int
	Ny       int
}

// coordScale converts the packed integer coordinates to degrees.
const coordScale = 1e-5

// NewRegionMaskLoader returns a loader for the 25 km north polar grid.
func NewRegionMaskLoader(maskPath, latPath, lonPath string) *RegionMaskLoader {
	return &RegionMaskLoader{MaskPath: maskPath, LatPath: latPath, LonPath: lonPath, Nx: 304, Ny: 448}
}

// Load reads the mask and coordinates. Some mask distributions carry a
// 300-byte header; it is skipped when the file size calls for it.
func (l *RegionMaskLoader) Load(ctx context.Context) (*domain.RegionMask, *domain.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	n := l.Nx * l.Ny

	raw, err := os.ReadFile(l.MaskPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading region mask: %w", err)
	}
	switch len(raw) {
	case n:
	case n + 300:
		raw = raw[300:]
	default:
		return nil, nil, fmt.Errorf("region mask %s: %d bytes, want %d cells", l.MaskPath, len(raw), n)
	}
	codes := make([]int32, n)
	for i, b := range raw {
		codes[i] = int32(b)
	}
	mask, err := domain.NewRegionMask(l.Nx, l.Ny, codes)
	if err != nil {
		return nil, nil, err
	}

	lat, err := l.readCoords(l.LatPath)
	if err != nil {
		return nil, nil, err
	}
	lon, err := l.readCoords(l.LonPath)
	if err != nil {
		return nil, nil, err
	}
	grid, err := domain.NewGrid(lat, lon)
	if err != nil {
		return nil, nil, err
	}
	return mask, grid, nil
}

func (l *RegionMaskLoader) readCoords(path string) (*sparse.DenseArray, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading coordinates: %w", err)
	}
	n := l.Nx * l.Ny
	if len(raw) != 4*n {
		return nil, fmt.Errorf("coordinates %s: %d bytes, want %d int32 values", path, len(raw), n)
	}
	packed := make([]int32, n)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, packed); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	out := sparse.ZerosDense(l.Nx, l.Ny)
	for i, v := range packed {
		out.Elements[i] = float64(v) * coordScale
	}
	return out, nil
}
