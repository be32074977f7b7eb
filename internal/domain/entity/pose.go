package entity

// Canonical joint names emitted by pose providers. Providers may also emit
// extended skeleton names (LEFT_SHOULDER, RIGHT_KNEE, ...) used by the
// overlay topology; consumers must treat every key as optional.
const (
	JointShoulder = "shoulder"
	JointHip      = "hip"
	JointKnee     = "knee"
	JointAnkle    = "ankle"
)

// Named joint angles computed by the geometry engine.
const (
	AngleKnee = "knee"
	AngleHip  = "hip"
	AngleBack = "back"
)

// JointPoint holds the normalized landmark coordinates for one joint as
// supplied by a pose provider, conceptually (x, y, z) with each component
// in [0,1]. The pipeline only relies on the first two components. A nil or
// short slice means the joint was not usably detected.
type JointPoint []float64

// PoseFrame maps joint names to detected landmark coordinates for a single
// frame. A missing key means "not detected", never zero.
type PoseFrame map[string]JointPoint

// AngleSet maps angle names (knee, hip, back) to degree values in [0,180].
// An angle that could not be computed is simply absent.
type AngleSet map[string]float64
