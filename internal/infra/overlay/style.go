package overlay

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Connection names two joints linked by a skeleton edge.
type Connection struct {
	From string
	To   string
}

// Style is the immutable drawing configuration for a Renderer. Joint and
// line thickness follow OpenCV conventions (-1 draws a filled shape).
type Style struct {
	JointRadius    int
	JointColor     color.RGBA
	JointThickness int

	SkeletonColor     color.RGBA
	SkeletonThickness int

	TextColor     color.RGBA
	TextScale     float64
	TextThickness int
	TextFont      gocv.HersheyFont

	Connections []Connection
}

// DefaultStyle returns the standard overlay look: filled green joint
// markers, red skeleton lines and the full-body connection topology.
// Connection names a provider never emits are simply never drawn.
func DefaultStyle() Style {
	return Style{
		JointRadius:    5,
		JointColor:     color.RGBA{G: 255},
		JointThickness: -1,

		SkeletonColor:     color.RGBA{R: 255},
		SkeletonThickness: 2,

		TextColor:     color.RGBA{R: 225, G: 225, B: 225},
		TextScale:     1.0,
		TextThickness: 1,
		TextFont:      gocv.FontHersheyPlain,

		Connections: []Connection{
			// Upper body
			{"LEFT_SHOULDER", "RIGHT_SHOULDER"},
			{"LEFT_SHOULDER", "LEFT_ELBOW"},
			{"LEFT_ELBOW", "LEFT_WRIST"},
			{"RIGHT_SHOULDER", "RIGHT_ELBOW"},
			{"RIGHT_ELBOW", "RIGHT_WRIST"},

			// Torso
			{"LEFT_SHOULDER", "LEFT_HIP"},
			{"RIGHT_SHOULDER", "RIGHT_HIP"},
			{"LEFT_HIP", "RIGHT_HIP"},

			// Legs
			{"LEFT_HIP", "LEFT_KNEE"},
			{"LEFT_KNEE", "LEFT_ANKLE"},
			{"RIGHT_HIP", "RIGHT_KNEE"},
			{"RIGHT_KNEE", "RIGHT_ANKLE"},

			// Feet
			{"LEFT_ANKLE", "LEFT_HEEL"},
			{"LEFT_HEEL", "LEFT_FOOT_INDEX"},
			{"RIGHT_ANKLE", "RIGHT_HEEL"},
			{"RIGHT_HEEL", "RIGHT_FOOT_INDEX"},

			// Face
			{"NOSE", "LEFT_EYE"},
			{"NOSE", "RIGHT_EYE"},
			{"LEFT_EYE", "LEFT_EAR"},
			{"RIGHT_EYE", "RIGHT_EAR"},
		},
	}
}
