package geo

import "github.com/spectramin/orescout/pkg/models"

// Cell is one ground cell produced by tiling. Transient: cells drive evaluation
// and are never materialized in bulk.
type Cell struct {
	Latitude  float64
	Longitude float64
	Row       int
	Col       int
}

// CellStream lazily enumerates the cells covering an area in row-major order
// (row outer, column inner). The order is part of the contract: detection
// ordering in listings depends on it. A stream is consumed once; re-deriving
// from the same descriptor yields the identical sequence.
type CellStream struct {
	area     AreaDescriptor
	stepsX   int     // lattice extends -stepsX..+stepsX on the column axis
	stepsY   int     // and -stepsY..+stepsY on the row axis
	maxDistM float64 // circle clip; negative means no clipping
	row      int
	col      int
	done     bool
}

// Cells builds the cell stream for an area descriptor.
func Cells(area AreaDescriptor) *CellStream {
	s := &CellStream{area: area, maxDistM: -1}

	switch area.Kind {
	case models.ScanKindPoint:
		// Fixed 3x3 neighborhood at native pixel size, always 9 cells.
		s.stepsX = 1
		s.stepsY = 1
	case models.ScanKindRadius:
		s.stepsX = int(area.RadiusM / area.CellSizeM)
		s.stepsY = s.stepsX
		s.maxDistM = area.RadiusM
	case models.ScanKindGrid:
		s.stepsX = int(area.BoxWidthM / 2 / area.CellSizeM)
		s.stepsY = int(area.BoxHeightM / 2 / area.CellSizeM)
	default:
		s.done = true
		return s
	}

	s.row = -s.stepsY
	s.col = -s.stepsX
	return s
}

// Next returns the next cell in the sequence. ok is false once exhausted.
func (s *CellStream) Next() (Cell, bool) {
	for !s.done {
		row, col := s.row, s.col
		s.advance()

		dy := float64(row) * s.area.CellSizeM
		dx := float64(col) * s.area.CellSizeM

		// A lattice point exactly on the circle boundary is included.
		if s.maxDistM >= 0 && dx*dx+dy*dy > s.maxDistM*s.maxDistM {
			continue
		}

		return Cell{
			Latitude:  s.area.CenterLat + dy/MetersPerDegree,
			Longitude: s.area.CenterLon + dx/MetersPerDegree,
			Row:       row,
			Col:       col,
		}, true
	}
	return Cell{}, false
}

func (s *CellStream) advance() {
	s.col++
	if s.col > s.stepsX {
		s.col = -s.stepsX
		s.row++
		if s.row > s.stepsY {
			s.done = true
		}
	}
}

// CellCount consumes a fresh stream to count the cells an area produces.
func CellCount(area AreaDescriptor) int64 {
	var n int64
	stream := Cells(area)
	for {
		if _, ok := stream.Next(); !ok {
			return n
		}
		n++
	}
}
