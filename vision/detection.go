package vision

// Detection represents a single detected person
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Index      int     `json:"id"`
}

// Width returns the box width in pixels
func (d *Detection) Width() int {
	return d.X2 - d.X1
}

// Height returns the box height in pixels
func (d *Detection) Height() int {
	return d.Y2 - d.Y1
}

// FallVerdict is the outcome of the fall heuristic for one frame
type FallVerdict struct {
	IsFall bool
	// Box is the first detection that matched the heuristic, nil otherwise.
	// At most one box is reported even when several would qualify.
	Box *Detection
}
