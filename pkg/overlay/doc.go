// Package overlay implements the interactive transform engine for meme text
// annotations.
//
// An [Engine] owns the annotations placed over a base image preview and the
// single active pointer gesture. Pointer events arrive in preview-space
// pixels; the engine translates them into geometry updates while enforcing
// the annotation invariants:
//
//   - width >= [MinWidth] and height >= [MinHeight] after every resize
//   - a dragged annotation's bounding box stays inside the preview canvas
//   - rotations within [SnapThreshold] degrees of a multiple of 90 snap to it
//
// # Interaction State
//
// The active gesture is a single [Interaction] value, one of [Idle],
// [Dragging], [Resizing] or [Rotating]. Begin* operations move the engine out
// of Idle and [Engine.EndInteraction] moves it back. There is never more than
// one gesture in flight.
//
// # Usage
//
//	e := overlay.NewEngine()
//	e.SetCanvas(700, 500)
//
//	a, _ := e.CreateAnnotation(50, 50)
//	_ = e.BeginDrag(a.ID, 60, 60)
//	e.PointerMove(90, 50)
//	e.EndInteraction()
//
// Browser-style wiring, where one pointer press decides between creating,
// dragging, resizing, rotating and deleting, is available through
// [Engine.PointerDown], which consults [Engine.HitTest].
package overlay
