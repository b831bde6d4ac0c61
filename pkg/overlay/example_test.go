package overlay_test

import (
	"fmt"

	"github.com/matzehuels/memeforge/pkg/overlay"
)

func ExampleEngine() {
	e := overlay.NewEngine()
	e.SetCanvas(700, 500)

	a, _ := e.CreateAnnotation(50, 50)
	_ = e.SetText(a.ID, "Top")

	_ = e.BeginDrag(a.ID, 50, 50)
	e.PointerMove(80, 40)
	e.EndInteraction()

	_ = e.BeginResize(a.ID, overlay.HandleSE, 280, 100)
	e.PointerMove(290, 105)
	e.EndInteraction()

	got, _ := e.Annotation(a.ID)
	fmt.Printf("%s at (%.0f, %.0f) size %.0fx%.0f\n", got.Text, got.X, got.Y, got.Width, got.Height)
	// Output: Top at (80, 40) size 210x65
}
