package shape

// Kind discriminates the shape variants a client can draw.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindPencil    Kind = "pencil"
	KindDiamond   Kind = "diamond"
	KindArrow     Kind = "arrow"
	KindLine      Kind = "line"
)

// Shape is one of Rectangle, Circle, Pencil, Diamond, Arrow or Line.
// The set is closed: only this package can add variants.
type Shape interface {
	Kind() Kind
	isShape()
}

// Point is a vertex of a pencil stroke.
type Point struct {
	X float64
	Y float64
}

// Rectangle is anchored at its top-left corner.
type Rectangle struct {
	ID     string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Circle uses the centreX/centreY spelling of the wire format.
type Circle struct {
	ID      string
	CentreX float64
	CentreY float64
	Radius  float64
}

// Pencil is a freehand stroke.
type Pencil struct {
	ID     string
	Points []Point
}

// Diamond uses the centerX/centerY spelling of the wire format.
type Diamond struct {
	ID      string
	CenterX float64
	CenterY float64
	Width   float64
	Height  float64
}

// Arrow points from start to end.
type Arrow struct {
	ID     string
	StartX float64
	StartY float64
	EndX   float64
	EndY   float64
}

// Line is a straight segment.
type Line struct {
	ID     string
	StartX float64
	StartY float64
	EndX   float64
	EndY   float64
}

func (Rectangle) Kind() Kind { return KindRectangle }
func (Circle) Kind() Kind    { return KindCircle }
func (Pencil) Kind() Kind    { return KindPencil }
func (Diamond) Kind() Kind   { return KindDiamond }
func (Arrow) Kind() Kind     { return KindArrow }
func (Line) Kind() Kind      { return KindLine }

func (Rectangle) isShape() {}
func (Circle) isShape()    {}
func (Pencil) isShape()    {}
func (Diamond) isShape()   {}
func (Arrow) isShape()     {}
func (Line) isShape()      {}

// Equal reports whether a and b describe the same persisted shape.
// Client-generated ids are ignored: two shapes are equal when their kind
// matches and every coordinate is exactly equal.
func Equal(a, b Shape) bool {
	switch x := a.(type) {
	case Rectangle:
		y, ok := b.(Rectangle)
		return ok && x.X == y.X && x.Y == y.Y && x.Width == y.Width && x.Height == y.Height
	case Circle:
		y, ok := b.(Circle)
		return ok && x.CentreX == y.CentreX && x.CentreY == y.CentreY && x.Radius == y.Radius
	case Pencil:
		y, ok := b.(Pencil)
		if !ok || len(x.Points) != len(y.Points) {
			return false
		}
		for i := range x.Points {
			if x.Points[i] != y.Points[i] {
				return false
			}
		}
		return true
	case Diamond:
		y, ok := b.(Diamond)
		return ok && x.CenterX == y.CenterX && x.CenterY == y.CenterY && x.Width == y.Width && x.Height == y.Height
	case Arrow:
		y, ok := b.(Arrow)
		return ok && x.StartX == y.StartX && x.StartY == y.StartY && x.EndX == y.EndX && x.EndY == y.EndY
	case Line:
		y, ok := b.(Line)
		return ok && x.StartX == y.StartX && x.StartY == y.StartY && x.EndX == y.EndX && x.EndY == y.EndY
	default:
		return false
	}
}
