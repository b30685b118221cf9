package interlace

import (
	"fmt"
	"math"
	"sort"
)

// SurfacePx is a coordinate or length on the drawing surface.
type SurfacePx float64

// ImagePx is a coordinate or length in a source image's intrinsic pixel space.
type ImagePx float64

// Ratio is a dimensionless scale factor.
type Ratio float64

// Point is an intersection point in surface space. Each point contributes one
// cut-line per axis.
type Point struct {
	X SurfacePx `json:"x"`
	Y SurfacePx `json:"y"`
}

func Pt(x, y float64) Point { return Point{X: SurfacePx(x), Y: SurfacePx(y)} }

// Cell is one rectangle of the partitioned surface.
type Cell struct {
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	Top     SurfacePx `json:"top"`
	Left    SurfacePx `json:"left"`
	Width   SurfacePx `json:"width"`
	Height  SurfacePx `json:"height"`
	Primary bool      `json:"primary"`
}

// Partition splits a width x height surface into (len(points)+1)^2 cells.
//
// The x and y coordinates are sorted independently, so points only define
// cut-lines and are not kept as pairs. Cells are emitted row by row and
// Primary alternates like a checkerboard starting with the top-left cell.
func Partition(points []Point, width, height SurfacePx) []Cell {
	xs := make([]SurfacePx, 0, len(points)+2)
	ys := make([]SurfacePx, 0, len(points)+2)
	xs = append(xs, 0)
	ys = append(ys, 0)
	for _, p := range points {
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	xs = append(xs, width)
	ys = append(ys, height)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	sort.Slice(ys, func(i, j int) bool { return ys[i] < ys[j] })

	n := len(points) + 1
	cells := make([]Cell, 0, n*n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			cells = append(cells, Cell{
				Row:     row,
				Col:     col,
				Top:     ys[row],
				Left:    xs[col],
				Width:   xs[col+1] - xs[col],
				Height:  ys[row+1] - ys[row],
				Primary: (row+col)%2 == 0,
			})
		}
	}
	return cells
}

// ValidatePoints checks every point lies on the surface.
func ValidatePoints(points []Point, width, height SurfacePx) error {
	for i, p := range points {
		x, y := float64(p.X), float64(p.Y)
		if math.IsNaN(x) || math.IsNaN(y) || p.X < 0 || p.Y < 0 || p.X > width || p.Y > height {
			return fmt.Errorf("%w: point %d (%g,%g) not within %gx%g", ErrPointOutOfBounds, i, x, y, float64(width), float64(height))
		}
	}
	return nil
}

func clonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

func cloneCells(cells []Cell) []Cell {
	if cells == nil {
		return nil
	}
	out := make([]Cell, len(cells))
	copy(out, cells)
	return out
}
