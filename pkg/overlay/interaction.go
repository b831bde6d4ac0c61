package overlay

// Interaction is the single active pointer gesture. The concrete type is one
// of Idle, Dragging, Resizing or Rotating; no other type satisfies it.
type Interaction interface {
	isInteraction()
}

// Idle means no pointer gesture is in progress.
type Idle struct{}

// Dragging moves an annotation so that its origin tracks the pointer minus
// the grab offset captured on press.
type Dragging struct {
	ID      int
	OffsetX float64
	OffsetY float64
}

// Resizing drags one corner handle while the opposite corner stays fixed.
// LastX/LastY hold the previous pointer position; resizing is applied from
// per-frame deltas.
type Resizing struct {
	ID     int
	Handle Handle
	LastX  float64
	LastY  float64
}

// Rotating turns an annotation about its centre. AngleOffset is the pointer
// angle at press minus the rotation the annotation had then.
type Rotating struct {
	ID          int
	CenterX     float64
	CenterY     float64
	AngleOffset float64
}

func (Idle) isInteraction()     {}
func (Dragging) isInteraction() {}
func (Resizing) isInteraction() {}
func (Rotating) isInteraction() {}

// IsIdle reports whether s is the Idle state.
func IsIdle(s Interaction) bool {
	_, ok := s.(Idle)
	return ok
}

// TargetID returns the annotation the gesture acts on, if any.
func TargetID(s Interaction) (int, bool) {
	switch st := s.(type) {
	case Dragging:
		return st.ID, true
	case Resizing:
		return st.ID, true
	case Rotating:
		return st.ID, true
	}
	return 0, false
}

// Name returns a short lower-case name of the state for logs and UIs.
func Name(s Interaction) string {
	switch s.(type) {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case Rotating:
		return "rotating"
	}
	return "idle"
}
