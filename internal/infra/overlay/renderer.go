// Package overlay draws pose skeletons, joint markers, angle labels and
// feedback text onto video frames.
package overlay

import (
	"image"
	"math"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
)

// Renderer draws onto frames in place. Missing joints or angles are
// skipped per element; drawing never fails a frame.
type Renderer struct {
	style Style
}

func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// DrawSkeleton draws the full pose overlay: skeleton connections first so
// joint markers end up on top, then a filled marker per joint. When angles
// carries a value keyed by a joint's name, the rounded degree value is
// drawn 10px to the right of that marker.
func (r *Renderer) DrawSkeleton(frame *gocv.Mat, joints map[string]image.Point, angles entity.AngleSet) {
	r.DrawConnections(frame, joints)

	for name, pt := range joints {
		gocv.Circle(frame, pt, r.style.JointRadius, r.style.JointColor, r.style.JointThickness)

		if angle, ok := angles[name]; ok {
			r.DrawAngle(frame, angle, image.Pt(pt.X+10, pt.Y))
		}
	}
}

// DrawConnections draws one line per configured connection whose endpoints
// are both present; a missing endpoint silently skips that line.
func (r *Renderer) DrawConnections(frame *gocv.Mat, joints map[string]image.Point) {
	for _, conn := range r.style.Connections {
		pt1, ok1 := joints[conn.From]
		pt2, ok2 := joints[conn.To]
		if !ok1 || !ok2 {
			continue
		}
		gocv.Line(frame, pt1, pt2, r.style.SkeletonColor, r.style.SkeletonThickness)
	}
}

// DrawAngle draws the angle rounded to the nearest whole degree at coord.
func (r *Renderer) DrawAngle(frame *gocv.Mat, angle float64, coord image.Point) {
	text := strconv.Itoa(int(math.Round(angle)))
	gocv.PutText(frame, text, coord, r.style.TextFont, r.style.TextScale, r.style.TextColor, r.style.TextThickness)
}

// FeedbackText draws msg horizontally centered, at 90% of the frame height
// from the top.
func (r *Renderer) FeedbackText(frame *gocv.Mat, msg string) {
	origin := r.feedbackOrigin(frame.Cols(), frame.Rows(), msg)
	gocv.PutText(frame, msg, origin, r.style.TextFont, r.style.TextScale, r.style.TextColor, r.style.TextThickness)
}

func (r *Renderer) feedbackOrigin(width, height int, msg string) image.Point {
	size := gocv.GetTextSize(msg, r.style.TextFont, r.style.TextScale, r.style.TextThickness)
	x := (width - size.X) / 2
	y := height - height/10
	return image.Pt(x, y)
}

// ProjectToPixels maps normalized [0,1] landmark coordinates onto the
// pixel grid of a width x height frame. Joints without at least two
// coordinates are dropped.
func ProjectToPixels(pose entity.PoseFrame, width, height int) map[string]image.Point {
	px := make(map[string]image.Point, len(pose))
	for name, p := range pose {
		if len(p) < 2 {
			continue
		}
		x := int(math.Round(p[0] * float64(width)))
		y := int(math.Round(p[1] * float64(height)))
		px[name] = image.Pt(x, y)
	}
	return px
}
