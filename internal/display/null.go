package display

// Null is the stand-in backend used when no window system is attached:
// it accepts every request and reports a fixed screen size, so layout
// computation and the rest of the pipeline keep working headless.
type Null struct {
	W, H uint32
}

func NewNull() *Null {
	return &Null{W: 1024, H: 768}
}

func (n *Null) Size() (uint32, uint32) {
	if n == nil {
		return 0, 0
	}
	return n.W, n.H
}

func (n *Null) Map(WindowID)   {}
func (n *Null) Unmap(WindowID) {}
func (n *Null) Raise(WindowID) {}
func (n *Null) Flush()         {}

var _ Display = (*Null)(nil)

func (n *Null) ResizeMove(WindowID, uint32, uint32, uint32, uint32) error {
	return nil
}
