package geo

import (
	"math"
	"testing"

	"github.com/spectramin/orescout/pkg/models"
)

func collect(area AreaDescriptor) []Cell {
	var cells []Cell
	stream := Cells(area)
	for {
		c, ok := stream.Next()
		if !ok {
			return cells
		}
		cells = append(cells, c)
	}
}

func TestCells_PointIsAlwaysNineCells(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindPoint,
		CenterLat: -20.5,
		CenterLon: 134.5,
		CellSizeM: 10,
	}
	cells := collect(area)
	if len(cells) != 9 {
		t.Fatalf("expected 9 cells for point scan, got %d", len(cells))
	}

	// Center cell must be exactly the request coordinate.
	center := cells[4]
	if center.Latitude != -20.5 || center.Longitude != 134.5 {
		t.Errorf("center cell at (%v, %v), want (-20.5, 134.5)", center.Latitude, center.Longitude)
	}
}

func TestCells_RadiusZeroDegeneratesToCenterCell(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		CenterLat: 1.0,
		CenterLon: 2.0,
		RadiusM:   0,
		CellSizeM: 100,
	}
	cells := collect(area)
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell for radius 0, got %d", len(cells))
	}
	if cells[0].Latitude != 1.0 || cells[0].Longitude != 2.0 {
		t.Errorf("degenerate cell at (%v, %v)", cells[0].Latitude, cells[0].Longitude)
	}
}

func TestCells_RadiusNeverEmitsOutsideCircle(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		RadiusM:   5000,
		CellSizeM: 1000,
	}
	for _, c := range collect(area) {
		dx := float64(c.Col) * area.CellSizeM
		dy := float64(c.Row) * area.CellSizeM
		if dist := math.Sqrt(dx*dx + dy*dy); dist > area.RadiusM {
			t.Errorf("cell (%d,%d) at distance %.1f m exceeds radius %.1f m", c.Row, c.Col, dist, area.RadiusM)
		}
	}
}

func TestCells_RadiusBoundaryIsInclusive(t *testing.T) {
	// Lattice points at (+-r, 0) and (0, +-r) sit exactly on the circle.
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		RadiusM:   3000,
		CellSizeM: 1000,
	}
	onBoundary := 0
	for _, c := range collect(area) {
		dx := float64(c.Col) * area.CellSizeM
		dy := float64(c.Row) * area.CellSizeM
		if dx*dx+dy*dy == area.RadiusM*area.RadiusM {
			onBoundary++
		}
	}
	if onBoundary != 4 {
		t.Errorf("expected 4 axis cells exactly on the boundary, got %d", onBoundary)
	}
}

func TestCells_RadiusCountIsStrictlyLessThanLattice(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		RadiusM:   10000,
		CellSizeM: 1000,
	}
	count := CellCount(area)
	lattice := int64(21 * 21) // (2*10+1)^2
	if count >= lattice {
		t.Errorf("circle clip should drop corner cells: got %d of %d", count, lattice)
	}
	if count <= 0 {
		t.Errorf("expected non-empty stream, got %d", count)
	}
}

func TestCells_GridIncludesFullLattice(t *testing.T) {
	area := AreaDescriptor{
		Kind:       models.ScanKindGrid,
		BoxWidthM:  10000,
		BoxHeightM: 10000,
		CellSizeM:  1000,
	}
	count := CellCount(area)
	if count != 11*11 {
		t.Errorf("expected 121 cells for a 10 km box at 1 km spacing, got %d", count)
	}
}

func TestCells_GridRectangularBox(t *testing.T) {
	area := AreaDescriptor{
		Kind:       models.ScanKindGrid,
		BoxWidthM:  4000,
		BoxHeightM: 2000,
		CellSizeM:  1000,
	}
	cells := collect(area)
	if len(cells) != 5*3 {
		t.Fatalf("expected 15 cells for a 4x2 km box at 1 km spacing, got %d", len(cells))
	}
	for _, c := range cells {
		if c.Col < -2 || c.Col > 2 {
			t.Errorf("cell (%d,%d) outside box width", c.Row, c.Col)
		}
		if c.Row < -1 || c.Row > 1 {
			t.Errorf("cell (%d,%d) outside box height", c.Row, c.Col)
		}
	}
}

func TestCells_DeterministicRowMajorOrder(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		CenterLat: -20.0,
		CenterLon: 130.0,
		RadiusM:   4000,
		CellSizeM: 1000,
	}

	first := collect(area)
	second := collect(area)

	if len(first) != len(second) {
		t.Fatalf("two enumerations differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cell %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}

	// Row-major: row never decreases, and column increases within a row.
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if cur.Row < prev.Row {
			t.Fatalf("row order violated at %d: %+v after %+v", i, cur, prev)
		}
		if cur.Row == prev.Row && cur.Col <= prev.Col {
			t.Fatalf("column order violated at %d: %+v after %+v", i, cur, prev)
		}
	}
}

func TestCells_CoordinateConversion(t *testing.T) {
	area := AreaDescriptor{
		Kind:      models.ScanKindRadius,
		CenterLat: 10.0,
		CenterLon: 20.0,
		RadiusM:   1110,
		CellSizeM: 1110,
	}
	for _, c := range collect(area) {
		wantLat := 10.0 + float64(c.Row)*1110/MetersPerDegree
		wantLon := 20.0 + float64(c.Col)*1110/MetersPerDegree
		if math.Abs(c.Latitude-wantLat) > 1e-12 || math.Abs(c.Longitude-wantLon) > 1e-12 {
			t.Errorf("cell (%d,%d) at (%v,%v), want (%v,%v)", c.Row, c.Col, c.Latitude, c.Longitude, wantLat, wantLon)
		}
	}
}
