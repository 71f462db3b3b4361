package source

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMaskFiles(t *testing.T, nx, ny int, header []byte) *RegionMaskLoader {
	t.Helper()
	dir := t.TempDir()
	n := nx * ny

	mask := make([]byte, 0, len(header)+n)
	mask = append(mask, header...)
	for i := 0; i < n; i++ {
		mask = append(mask, byte(i%21))
	}
	maskPath := filepath.Join(dir, "region_n.msk")
	require.NoError(t, os.WriteFile(maskPath, mask, 0o600))

	packCoords := func(name string, base int32) string {
		var buf bytes.Buffer
		for i := 0; i < n; i++ {
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, base+int32(i)))
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
		return path
	}
	// 70.00000 degrees and up for latitudes, -150.00000 and up for longitudes.
	latPath := packCoords("psn25lats_v3.dat", 7000000)
	lonPath := packCoords("psn25lons_v3.dat", -15000000)

	l := NewRegionMaskLoader(maskPath, latPath, lonPath)
	l.Nx, l.Ny = nx, ny
	return l
}

func TestRegionMaskLoad(t *testing.T) {
	l := writeMaskFiles(t, 4, 3, nil)

	mask, grid, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{4, 3}, mask.Shape())
	assert.Equal(t, int32(0), mask.Code(0))
	assert.Equal(t, int32(11), mask.Code(11))

	assert.Equal(t, []int{4, 3}, grid.Shape())
	assert.InDelta(t, 70.0, grid.Lat.Elements[0], 1e-9)
	assert.InDelta(t, 70.00011, grid.Lat.Elements[11], 1e-9)
	assert.InDelta(t, -150.0, grid.Lon.Elements[0], 1e-9)
}

func TestRegionMaskLoadSkipsHeader(t *testing.T) {
	l := writeMaskFiles(t, 4, 3, make([]byte, 300))

	mask, _, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), mask.Code(0))
	assert.Equal(t, int32(1), mask.Code(1))
}

func TestRegionMaskLoadRejectsBadSizes(t *testing.T) {
	l := writeMaskFiles(t, 4, 3, nil)

	require.NoError(t, os.WriteFile(l.MaskPath, make([]byte, 5), 0o600))
	_, _, err := l.Load(context.Background())
	assert.ErrorContains(t, err, "want 12 cells")

	l = writeMaskFiles(t, 4, 3, nil)
	require.NoError(t, os.WriteFile(l.LatPath, make([]byte, 7), 0o600))
	_, _, err = l.Load(context.Background())
	assert.ErrorContains(t, err, "want 12 int32 values")
}

func TestRegionMaskLoadHonorsCancellation(t *testing.T) {
	l := writeMaskFiles(t, 4, 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := l.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
