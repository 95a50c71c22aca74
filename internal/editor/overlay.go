package editor

import (
	"mapworkbench/internal/frame"
	"mapworkbench/internal/geo"
)

// Overlay is the render layer under the handles: an image, or a local-XY
// GeoJSON frame that follows the rectangle. It implements handle.Target.
type Overlay struct {
	URL        string
	Name       string
	FloorLevel string
	Opacity    float64

	bounds   geo.Bounds
	rotation float64
	aspect   float64
	frame    *frame.LocalFrame
}

func (o *Overlay) Bounds() geo.Bounds   { return o.bounds }
func (o *Overlay) Rotation() float64    { return o.rotation }
func (o *Overlay) AspectRatio() float64 { return o.aspect }

func (o *Overlay) SetBounds(b geo.Bounds) {
	o.bounds = b
	if o.frame != nil {
		o.frame.Bounds = b
	}
}

func (o *Overlay) SetRotation(deg float64) {
	o.rotation = deg
	if o.frame != nil {
		o.frame.Rotation = deg
	}
}
