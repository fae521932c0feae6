package voxel

// Block is a block-type id stored in a grid cell.
type Block = uint8

// Air is the empty block. Out-of-range reads also resolve to Air.
const Air Block = 0

// IsRendered reports whether a block id produces geometry. Light
// emission is a registry property of the block, not a separate id.
func IsRendered(b Block) bool {
	return b != Air
}

// Grid is a dense 3D block array. Index order is y-major, then z, then x:
// idx = y*EX*EZ + z*EX + x.
type Grid struct {
	EX, EY, EZ int
	Blocks     []Block
}

func NewGrid(ex, ey, ez int) *Grid {
	return &Grid{
		EX:     ex,
		EY:     ey,
		EZ:     ez,
		Blocks: make([]Block, ex*ey*ez),
	}
}

// NewCube returns an edge*edge*edge grid, the shape used for streamed
// world chunks.
func NewCube(edge int) *Grid {
	return NewGrid(edge, edge, edge)
}

func (g *Grid) inRange(x, y, z int) bool {
	return x >= 0 && x < g.EX && y >= 0 && y < g.EY && z >= 0 && z < g.EZ
}

// At returns the block at (x,y,z), or Air when out of range.
func (g *Grid) At(x, y, z int) Block {
	if !g.inRange(x, y, z) {
		return Air
	}
	return g.Blocks[y*g.EX*g.EZ+z*g.EX+x]
}

// Set writes the block at (x,y,z). Writes outside the grid are dropped;
// structure stamping relies on this to clip against chunk bounds.
func (g *Grid) Set(x, y, z int, b Block) {
	if !g.inRange(x, y, z) {
		return
	}
	g.Blocks[y*g.EX*g.EZ+z*g.EX+x] = b
}

// FillBox writes b into the inclusive box [x0,x1]x[y0,y1]x[z0,z1],
// clipped to the grid.
func (g *Grid) FillBox(x0, y0, z0, x1, y1, z1 int, b Block) {
	for y := y0; y <= y1; y++ {
		for z := z0; z <= z1; z++ {
			for x := x0; x <= x1; x++ {
				g.Set(x, y, z, b)
			}
		}
	}
}
