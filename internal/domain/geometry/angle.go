// Package geometry computes named joint angles from pose landmarks.
//
// All functions are pure and panic-free on partial or untrusted pose data:
// an angle that cannot be computed is reported as absent (ok == false),
// never as an error or a default value.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
)

// Angle returns the angle at vertex b between vectors (a-b) and (c-b), in
// degrees within [0,180]. ok is false when any point is absent or has fewer
// than two coordinates, when either vector has zero length (coincident
// points), or when the input is not finite.
func Angle(a, b, c entity.JointPoint) (float64, bool) {
	if a == nil || b == nil || c == nil {
		return 0, false
	}
	if len(a) < 2 || len(b) < 2 || len(c) < 2 {
		return 0, false
	}

	// Angles are measured in the image plane; z is ignored.
	v1 := []float64{a[0] - b[0], a[1] - b[1]}
	v2 := []float64{c[0] - b[0], c[1] - b[1]}

	n1 := floats.Norm(v1, 2)
	n2 := floats.Norm(v2, 2)
	if n1 == 0 || n2 == 0 {
		return 0, false
	}

	cos := floats.Dot(v1, v2) / (n1 * n2)
	if math.IsNaN(cos) {
		return 0, false
	}

	// Rounding can push the cosine past ±1 by epsilon; Acos would return
	// NaN there, so the clamp is mandatory.
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	return math.Acos(cos) * 180 / math.Pi, true
}

// KneeAngle returns the knee flexion angle (hip-knee-ankle). 180 is a fully
// extended leg, smaller values mean more flexion.
func KneeAngle(pose entity.PoseFrame) (float64, bool) {
	return jointAngle(pose, entity.JointHip, entity.JointKnee, entity.JointAnkle)
}

// HipAngle returns the hip flexion angle (shoulder-hip-knee).
func HipAngle(pose entity.PoseFrame) (float64, bool) {
	return jointAngle(pose, entity.JointShoulder, entity.JointHip, entity.JointKnee)
}

// BackAngle returns the spinal alignment angle at the hip
// (shoulder-hip-ankle). Values close to 180 indicate a neutral spine.
func BackAngle(pose entity.PoseFrame) (float64, bool) {
	return jointAngle(pose, entity.JointShoulder, entity.JointHip, entity.JointAnkle)
}

// Angles computes every named angle the pose supports. Angles whose
// required joints are missing are left out of the set.
func Angles(pose entity.PoseFrame) entity.AngleSet {
	set := make(entity.AngleSet, 3)
	if v, ok := KneeAngle(pose); ok {
		set[entity.AngleKnee] = v
	}
	if v, ok := HipAngle(pose); ok {
		set[entity.AngleHip] = v
	}
	if v, ok := BackAngle(pose); ok {
		set[entity.AngleBack] = v
	}
	return set
}

// jointAngle validates presence and shape of the three named joints before
// delegating to Angle.
func jointAngle(pose entity.PoseFrame, first, vertex, last string) (float64, bool) {
	if pose == nil {
		return 0, false
	}
	a, ok := pose[first]
	if !ok {
		return 0, false
	}
	b, ok := pose[vertex]
	if !ok {
		return 0, false
	}
	c, ok := pose[last]
	if !ok {
		return 0, false
	}
	if a == nil || b == nil || c == nil {
		return 0, false
	}
	if len(a) < 2 || len(b) < 2 || len(c) < 2 {
		return 0, false
	}
	return Angle(a, b, c)
}
