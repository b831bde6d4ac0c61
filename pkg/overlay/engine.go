package overlay

import (
	"math"
	"slices"

	errs "github.com/matzehuels/memeforge/pkg/errors"
)

// Control geometry, in the annotation's local unrotated frame. Controls are
// only live on the selected annotation.
const (
	// HandleHitRadius is the pick radius around each corner handle.
	HandleHitRadius = 8.0

	// The rotate knob sits outside the bottom-left corner so it does not
	// shadow the sw resize handle.
	RotateKnobOffset = 16.0
	RotateKnobRadius = 10.0

	// The delete button sits outside the top-right corner.
	DeleteButtonOffset = 16.0
	DeleteButtonRadius = 12.0
)

// HitKind classifies what lies under a pointer press.
type HitKind int

const (
	HitNone HitKind = iota
	HitHandle
	HitRotate
	HitDelete
	HitBody
)

func (k HitKind) String() string {
	switch k {
	case HitHandle:
		return "handle"
	case HitRotate:
		return "rotate"
	case HitDelete:
		return "delete"
	case HitBody:
		return "body"
	}
	return "none"
}

// Hit is the result of a hit test. ID and Handle are set when relevant.
type Hit struct {
	Kind   HitKind
	ID     int
	Handle Handle
}

// StyleUpdate carries optional style changes. Nil fields are left untouched.
type StyleUpdate struct {
	Color      *string
	FontSize   *int
	FontFamily *FontFamily
}

// Snapshot is a copy of the engine state, used to persist and restore drafts.
type Snapshot struct {
	CanvasWidth  float64      `json:"canvasWidth"`
	CanvasHeight float64      `json:"canvasHeight"`
	NextID       int          `json:"nextId"`
	Annotations  []Annotation `json:"annotations"`
	Selected     int          `json:"selected,omitempty"`
	HasSelection bool         `json:"hasSelection,omitempty"`
	Style        Style        `json:"style"`
}

// Engine owns the annotations of one editing session and its single active
// gesture. It is not safe for concurrent use; callers serialise access.
type Engine struct {
	canvasW, canvasH float64
	nextID           int
	annotations      []Annotation
	selected         int
	hasSelection     bool
	style            Style
	state            Interaction
}

// NewEngine returns an engine with no base image, default tool style and the
// Idle state.
func NewEngine() *Engine {
	return &Engine{
		nextID: 1,
		style:  DefaultStyle(),
		state:  Idle{},
	}
}

// SetCanvas installs a new base image preview of the given size. All
// annotations, the selection and any gesture are discarded. Identities keep
// counting up so an id is never reused within the session.
func (e *Engine) SetCanvas(width, height float64) {
	e.canvasW, e.canvasH = width, height
	e.annotations = nil
	e.hasSelection = false
	e.selected = 0
	e.state = Idle{}
}

// Canvas returns the preview dimensions; zero when no base image is loaded.
func (e *Engine) Canvas() (width, height float64) {
	return e.canvasW, e.canvasH
}

// HasCanvas reports whether a base image preview is installed.
func (e *Engine) HasCanvas() bool {
	return e.canvasW > 0 && e.canvasH > 0
}

// CreateAnnotation places a new default-sized annotation with its top-left
// corner at (x, y) using the active style, and selects it. It returns false
// without changing anything when no base image is loaded.
func (e *Engine) CreateAnnotation(x, y float64) (Annotation, bool) {
	if !e.HasCanvas() {
		return Annotation{}, false
	}
	a := Annotation{
		ID:     e.nextID,
		X:      x,
		Y:      y,
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Text:   DefaultText,
		Style:  e.style,
	}
	e.nextID++
	e.annotations = append(e.annotations, a)
	e.selected, e.hasSelection = a.ID, true
	return a, true
}

// BeginDrag starts moving annotation id. The annotation becomes selected and
// its style is mirrored into the active style.
func (e *Engine) BeginDrag(id int, px, py float64) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	e.EndInteraction()
	a := e.annotations[i]
	e.selectIndex(i)
	e.state = Dragging{ID: id, OffsetX: px - a.X, OffsetY: py - a.Y}
	return nil
}

// BeginResize starts resizing annotation id from the given corner.
func (e *Engine) BeginResize(id int, h Handle, px, py float64) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	if _, err := ParseHandle(string(h)); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "cannot resize annotation %d", id)
	}
	e.EndInteraction()
	e.selectIndex(i)
	e.state = Resizing{ID: id, Handle: h, LastX: px, LastY: py}
	return nil
}

// BeginRotate starts rotating annotation id about its centre.
func (e *Engine) BeginRotate(id int, px, py float64) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	e.EndInteraction()
	a := e.annotations[i]
	e.selectIndex(i)
	cx, cy := a.Center()
	e.state = Rotating{
		ID:          id,
		CenterX:     cx,
		CenterY:     cy,
		AngleOffset: PointerAngle(cx, cy, px, py) - a.Rotation,
	}
	return nil
}

// PointerMove applies the active gesture to the pointer position. It is a
// no-op while Idle.
func (e *Engine) PointerMove(px, py float64) {
	id, ok := TargetID(e.state)
	if !ok {
		return
	}
	i, err := e.index(id)
	if err != nil {
		// The target vanished mid-gesture.
		e.state = Idle{}
		return
	}
	a := &e.annotations[i]

	switch st := e.state.(type) {
	case Dragging:
		a.X = Clamp(px-st.OffsetX, 0, e.canvasW-a.Width)
		a.Y = Clamp(py-st.OffsetY, 0, e.canvasH-a.Height)

	case Resizing:
		resize(a, st.Handle, px-st.LastX, py-st.LastY)
		st.LastX, st.LastY = px, py
		e.state = st

	case Rotating:
		a.Rotation = Snap(PointerAngle(st.CenterX, st.CenterY, px, py) - st.AngleOffset)
	}
}

// resize applies one frame of pointer delta to the given corner, keeping the
// opposite corner fixed and the size at or above the minimums.
func resize(a *Annotation, h Handle, dx, dy float64) {
	switch h {
	case HandleSE:
		a.Width = math.Max(MinWidth, a.Width+dx)
		a.Height = math.Max(MinHeight, a.Height+dy)
	case HandleSW:
		nw := math.Max(MinWidth, a.Width-dx)
		a.X += a.Width - nw
		a.Width = nw
		a.Height = math.Max(MinHeight, a.Height+dy)
	case HandleNE:
		a.Width = math.Max(MinWidth, a.Width+dx)
		nh := math.Max(MinHeight, a.Height-dy)
		a.Y += a.Height - nh
		a.Height = nh
	case HandleNW:
		nw := math.Max(MinWidth, a.Width-dx)
		nh := math.Max(MinHeight, a.Height-dy)
		a.X += a.Width - nw
		a.Y += a.Height - nh
		a.Width, a.Height = nw, nh
	}
}

// EndInteraction returns to Idle. Safe to call in any state.
func (e *Engine) EndInteraction() {
	e.state = Idle{}
}

// State returns the active gesture.
func (e *Engine) State() Interaction {
	return e.state
}

// DeleteAnnotation removes annotation id, clearing the selection if it was
// selected. Unknown ids are ignored. It reports whether anything was removed.
func (e *Engine) DeleteAnnotation(id int) bool {
	i, err := e.index(id)
	if err != nil {
		return false
	}
	e.annotations = slices.Delete(e.annotations, i, i+1)
	if e.hasSelection && e.selected == id {
		e.hasSelection, e.selected = false, 0
	}
	if target, ok := TargetID(e.state); ok && target == id {
		e.state = Idle{}
	}
	return true
}

// UpdateStyle changes the active style and, when an annotation is selected,
// applies the same change to it. Font sizes of zero or less fall back to
// DefaultFontSize; other sizes are clamped to [MinFontSize, MaxFontSize].
// It reports whether a selected annotation was changed.
func (e *Engine) UpdateStyle(u StyleUpdate) (bool, error) {
	next := e.style
	if u.Color != nil {
		if err := errs.ValidateColor(*u.Color); err != nil {
			return false, err
		}
		next.Color = *u.Color
	}
	if u.FontSize != nil {
		next.FontSize = NormalizeFontSize(*u.FontSize)
	}
	if u.FontFamily != nil {
		if !u.FontFamily.Valid() {
			return false, errs.New(errs.ErrCodeInvalidFont, "unknown font family: %q", *u.FontFamily)
		}
		next.FontFamily = *u.FontFamily
	}
	e.style = next

	if !e.hasSelection {
		return false, nil
	}
	i, err := e.index(e.selected)
	if err != nil {
		return false, nil
	}
	a := &e.annotations[i]
	if u.Color != nil {
		a.Color = next.Color
	}
	if u.FontSize != nil {
		a.FontSize = next.FontSize
	}
	if u.FontFamily != nil {
		a.FontFamily = next.FontFamily
	}
	return true, nil
}

// NormalizeFontSize maps a requested size onto the supported range.
func NormalizeFontSize(size int) int {
	if size <= 0 {
		return DefaultFontSize
	}
	return min(max(size, MinFontSize), MaxFontSize)
}

// SetText replaces the text of annotation id.
func (e *Engine) SetText(id int, text string) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	if err := errs.ValidateCaption(text); err != nil {
		return err
	}
	e.annotations[i].Text = text
	return nil
}

// Select marks annotation id selected and mirrors its style into the active
// style.
func (e *Engine) Select(id int) error {
	i, err := e.index(id)
	if err != nil {
		return err
	}
	e.selectIndex(i)
	return nil
}

// Deselect clears the selection.
func (e *Engine) Deselect() {
	e.hasSelection, e.selected = false, 0
}

// Selected returns the selected annotation, if any.
func (e *Engine) Selected() (Annotation, bool) {
	if !e.hasSelection {
		return Annotation{}, false
	}
	return e.Annotation(e.selected)
}

// Annotation returns annotation id.
func (e *Engine) Annotation(id int) (Annotation, bool) {
	i, err := e.index(id)
	if err != nil {
		return Annotation{}, false
	}
	return e.annotations[i], true
}

// Annotations returns a copy of the annotations in drawing order.
func (e *Engine) Annotations() []Annotation {
	return slices.Clone(e.annotations)
}

// ActiveStyle returns the style new annotations receive.
func (e *Engine) ActiveStyle() Style {
	return e.style
}

// HitTest reports what a press at (px, py) would act on. Controls of the
// selected annotation win over bodies, and later annotations win over
// earlier ones since they are drawn on top.
func (e *Engine) HitTest(px, py float64) Hit {
	if sel, ok := e.Selected(); ok {
		x, y := toLocal(sel, px, py)
		corners := map[Handle][2]float64{
			HandleNW: {0, 0},
			HandleNE: {sel.Width, 0},
			HandleSE: {sel.Width, sel.Height},
			HandleSW: {0, sel.Height},
		}
		for _, h := range Handles {
			c := corners[h]
			if within(x, y, c[0], c[1], HandleHitRadius) {
				return Hit{Kind: HitHandle, ID: sel.ID, Handle: h}
			}
		}
		if within(x, y, -RotateKnobOffset, sel.Height+RotateKnobOffset, RotateKnobRadius) {
			return Hit{Kind: HitRotate, ID: sel.ID}
		}
		if within(x, y, sel.Width+DeleteButtonOffset, -DeleteButtonOffset, DeleteButtonRadius) {
			return Hit{Kind: HitDelete, ID: sel.ID}
		}
	}
	for i := len(e.annotations) - 1; i >= 0; i-- {
		a := e.annotations[i]
		x, y := toLocal(a, px, py)
		if x >= 0 && x <= a.Width && y >= 0 && y <= a.Height {
			return Hit{Kind: HitBody, ID: a.ID}
		}
	}
	return Hit{Kind: HitNone}
}

// PointerDown routes a press the way the browser editor does: controls start
// resizing or rotating or delete, bodies start a drag, and empty canvas
// creates a new annotation.
func (e *Engine) PointerDown(px, py float64) Hit {
	hit := e.HitTest(px, py)
	switch hit.Kind {
	case HitHandle:
		_ = e.BeginResize(hit.ID, hit.Handle, px, py)
	case HitRotate:
		_ = e.BeginRotate(hit.ID, px, py)
	case HitDelete:
		e.DeleteAnnotation(hit.ID)
	case HitBody:
		_ = e.BeginDrag(hit.ID, px, py)
	case HitNone:
		if a, ok := e.CreateAnnotation(px, py); ok {
			hit.ID = a.ID
		}
	}
	return hit
}

// Snapshot copies the engine state. The active gesture is not captured.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		CanvasWidth:  e.canvasW,
		CanvasHeight: e.canvasH,
		NextID:       e.nextID,
		Annotations:  e.Annotations(),
		Selected:     e.selected,
		HasSelection: e.hasSelection,
		Style:        e.style,
	}
}

// Restore replaces the engine state with s and returns to Idle. The id
// counter never moves backwards past an existing annotation.
func (e *Engine) Restore(s Snapshot) {
	e.canvasW, e.canvasH = s.CanvasWidth, s.CanvasHeight
	e.annotations = slices.Clone(s.Annotations)
	e.nextID = max(s.NextID, 1)
	for _, a := range e.annotations {
		e.nextID = max(e.nextID, a.ID+1)
	}
	e.style = s.Style
	if e.style == (Style{}) {
		e.style = DefaultStyle()
	}
	e.hasSelection, e.selected = false, 0
	if s.HasSelection {
		if _, err := e.index(s.Selected); err == nil {
			e.hasSelection, e.selected = true, s.Selected
		}
	}
	e.state = Idle{}
}

func (e *Engine) selectIndex(i int) {
	a := e.annotations[i]
	e.selected, e.hasSelection = a.ID, true
	e.style = a.Style
}

func (e *Engine) index(id int) (int, error) {
	i := slices.IndexFunc(e.annotations, func(a Annotation) bool { return a.ID == id })
	if i < 0 {
		return -1, errs.New(errs.ErrCodeNotFound, "annotation %d not found", id)
	}
	return i, nil
}

func within(x, y, cx, cy, r float64) bool {
	return math.Hypot(x-cx, y-cy) <= r
}
