package types

type Pointi struct {
	X int
	Y int
}

type Pointf64 struct {
	X float64
	Y float64
}

// Recti is a pixel rectangle, origin at the top left.
type Recti struct {
	X int
	Y int
	W int
	H int
}

func (r Recti) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

type Rectf64 struct {
	X float64
	Y float64
	W float64
	H float64
}
