package viz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/polychain/internal/dynamo"
)

// Camera rotates world points about the centroid before an orthographic
// projection onto the canvas plane.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Rotate applies the X, Y then Z rotations.
func (c *Camera) Rotate(p r3.Vec) r3.Vec {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// ChainView draws a chain conformation as beads joined by bonds.
type ChainView struct {
	Canvas *Canvas
	Camera *Camera
}

func NewChainView(w, h int) *ChainView {
	return &ChainView{Canvas: NewCanvas(w, h), Camera: NewCamera()}
}

// Render projects x centred on its centroid and scaled to fit the canvas.
func (v *ChainView) Render(x dynamo.State) string {
	v.Canvas.Clear()
	n := x.Beads()
	if n == 0 {
		return v.Canvas.String()
	}

	var centroid r3.Vec
	for i := 0; i < n; i++ {
		centroid = r3.Add(centroid, x.Bead(i))
	}
	centroid = r3.Scale(1/float64(n), centroid)

	pts := make([]r3.Vec, n)
	extent := 0.0
	for i := range pts {
		pts[i] = v.Camera.Rotate(r3.Sub(x.Bead(i), centroid))
		extent = math.Max(extent, math.Max(math.Abs(pts[i].X), math.Abs(pts[i].Y)))
	}
	if extent == 0 {
		extent = 1
	}

	pw, ph := v.Canvas.PixelSize()
	scale := 0.45 * float64(min(pw, ph)) / extent * v.Camera.Zoom
	screen := func(p r3.Vec) (int, int) {
		return int(p.X*scale) + pw/2, int(-p.Y*scale) + ph/2
	}

	for i := 0; i < n-1; i++ {
		x0, y0 := screen(pts[i])
		x1, y1 := screen(pts[i+1])
		v.Canvas.DrawLine(x0, y0, x1, y1)
	}
	for _, p := range pts {
		sx, sy := screen(p)
		v.Canvas.DrawDot(sx, sy)
	}
	return v.Canvas.String()
}
