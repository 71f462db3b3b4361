package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcticdata/icemerge/internal/domain"
)

// writeModelDir lays out a model directory with a text grid and one binary
// thickness file per year. Cell values encode year and month so the test can
// check placement; cell 0 of every month is left at zero.
func writeModelDir(t *testing.T, nx, ny int, years []int, gzipYear int) *ModelThicknessLoader {
	t.Helper()
	dir := t.TempDir()
	cells := nx * ny

	var sb strings.Builder
	for i := 0; i < cells; i++ { // longitudes
		fmt.Fprintf(&sb, "%9.3f", -180.0+float64(i))
	}
	sb.WriteByte('\n')
	for i := 0; i < cells; i++ { // latitudes
		fmt.Fprintf(&sb, "%9.3f", 60.0+float64(i)*0.01)
	}
	sb.WriteByte('\n')
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grid.dat"), []byte(sb.String()), 0o600))

	for _, year := range years {
		var buf bytes.Buffer
		for m := 0; m < 12; m++ {
			for c := 0; c < cells; c++ {
				v := float32(0)
				if c > 0 {
					v = float32(year%100) + float32(m+1)/100
				}
				require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
			}
		}
		name := fmt.Sprintf("heff.H%d", year)
		if year == gzipYear {
			var gzbuf bytes.Buffer
			gz := gzip.NewWriter(&gzbuf)
			_, err := gz.Write(buf.Bytes())
			require.NoError(t, err)
			require.NoError(t, gz.Close())
			require.NoError(t, os.WriteFile(filepath.Join(dir, name+".gz"), gzbuf.Bytes(), 0o600))
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
	}

	l := NewModelThicknessLoader(dir)
	l.Nx, l.Ny = nx, ny
	return l
}

func TestModelThicknessLoad(t *testing.T) {
	l := writeModelDir(t, 3, 4, []int{2018, 2019}, 2019)
	cells := 12

	ds, err := l.Load(context.Background(), 2018, 2019)
	require.NoError(t, err)

	require.Len(t, ds.Time, 24)
	assert.Equal(t, time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC), ds.Time[0])
	assert.Equal(t, time.Date(2019, time.December, 1, 0, 0, 0, 0, time.UTC), ds.Time[23])

	f, ok := ds.Field(ModelThicknessField)
	require.True(t, ok)
	assert.Equal(t, []int{24, 3, 4}, f.Data.Shape)

	// Plain file, March 2018, cell 1.
	assert.InDelta(t, 18.03, f.Data.Elements[2*cells+1], 1e-5)
	// Gzipped file, November 2019, cell 2.
	assert.InDelta(t, 19.11, f.Data.Elements[(12+10)*cells+2], 1e-5)
	// Zero thickness reads back as a hole.
	assert.True(t, math.IsNaN(f.Data.Elements[0]))

	assert.InDelta(t, -180.0, ds.Grid.Lon.Elements[0], 1e-9)
	assert.InDelta(t, 60.11, ds.Grid.Lat.Elements[11], 1e-9)

	units, ok := f.Attrs.Get("units")
	require.True(t, ok)
	assert.Equal(t, "meters", units)
}

func TestModelThicknessLoadMissingYear(t *testing.T) {
	l := writeModelDir(t, 3, 4, []int{2018}, 0)

	_, err := l.Load(context.Background(), 2018, 2019)
	var missing *domain.MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "model thickness", missing.Source)
	assert.Equal(t, 2019, missing.Month.Year())
	assert.Equal(t, time.January, missing.Month.Month())
}

func TestModelThicknessLoadRejectsEmptyRange(t *testing.T) {
	l := writeModelDir(t, 3, 4, nil, 0)
	_, err := l.Load(context.Background(), 2019, 2018)
	assert.ErrorContains(t, err, "empty")
}

func TestModelThicknessLoadRejectsShortGrid(t *testing.T) {
	l := writeModelDir(t, 3, 4, []int{2018}, 0)
	require.NoError(t, os.WriteFile(filepath.Join(l.Dir, l.GridFile), []byte("1.0 2.0 3.0\n"), 0o600))
	_, err := l.Load(context.Background(), 2018, 2018)
	assert.ErrorContains(t, err, "want 24")
}
