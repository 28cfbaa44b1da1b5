package flittrace

// A Position places a router on the drawing. X is the row and Y the column.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// A Link connects two routers in one direction.
type Link struct {
	ID  int `json:"id"`
	Src int `json:"src"`
	Dst int `json:"dst"`
}

// A Mesh is the n x n XY mesh built by the Mesh_XY topology.
type Mesh struct {
	N       int        `json:"n"`
	Routers []Position `json:"routers"`
	Links   []Link     `json:"links"`
}

// NewMesh builds the routers and links of an n x n mesh, numbering links the
// way Mesh_XY does: east links row by row, then west links, then north links
// column by column, then south links.
func NewMesh(n int) *Mesh {
	m := &Mesh{N: n}

	for r := 0; r < n*n; r++ {
		m.Routers = append(m.Routers, Position{X: r / n, Y: r % n})
	}

	add := func(src, dst int) {
		m.Links = append(m.Links, Link{ID: len(m.Links), Src: src, Dst: dst})
	}

	for row := 0; row < n; row++ {
		for col := 0; col+1 < n; col++ {
			add(col+row*n, col+1+row*n)
		}
	}

	for row := 0; row < n; row++ {
		for col := 0; col+1 < n; col++ {
			add(col+1+row*n, col+row*n)
		}
	}

	for col := 0; col < n; col++ {
		for row := 0; row+1 < n; row++ {
			add(col+row*n, col+(row+1)*n)
		}
	}

	for col := 0; col < n; col++ {
		for row := 0; row+1 < n; row++ {
			add(col+(row+1)*n, col+row*n)
		}
	}

	return m
}

// Reverse returns the link going the other way. East and north links are
// followed by their reverse group, so the offset is the group size.
func (m *Mesh) Reverse(id int) int {
	group := m.N * (m.N - 1)
	l := m.Links[id]

	if l.Src > l.Dst {
		return id - group
	}

	return id + group
}
