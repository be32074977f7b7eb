package pose

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
)

// FixedProvider returns the same pose for every frame. It stands in for a
// real estimator in tests and when no pose service is configured.
type FixedProvider struct {
	pose entity.PoseFrame
}

// NewFixedProvider copies pose so later mutation by the caller cannot leak
// into results. A nil pose yields a provider that never detects.
func NewFixedProvider(pose entity.PoseFrame) *FixedProvider {
	if pose == nil {
		return &FixedProvider{}
	}
	cp := make(entity.PoseFrame, len(pose))
	for name, p := range pose {
		point := make(entity.JointPoint, len(p))
		copy(point, p)
		cp[name] = point
	}
	return &FixedProvider{pose: cp}
}

// DemoPose is the canned upright pose used when running without a real
// pose service.
func DemoPose() entity.PoseFrame {
	return entity.PoseFrame{
		entity.JointShoulder: {0.5, 0.5, 0.5},
		entity.JointHip:      {0.5, 0.6, 0.5},
		entity.JointKnee:     {0.5, 0.7, 0.5},
		entity.JointAnkle:    {0.5, 0.8, 0.5},
	}
}

func (p *FixedProvider) EstimatePose(_ context.Context, _ gocv.Mat) (entity.PoseFrame, bool, error) {
	if p.pose == nil {
		return nil, false, nil
	}
	out := make(entity.PoseFrame, len(p.pose))
	for name, pt := range p.pose {
		out[name] = pt
	}
	return out, true, nil
}
