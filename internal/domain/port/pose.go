package port

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
)

// PoseProvider maps one frame to detected joint landmarks. detected is
// false when no pose was found in the frame; err is reserved for provider
// failures (transport, encoding). Every joint key in the returned pose is
// independently optional.
type PoseProvider interface {
	EstimatePose(ctx context.Context, frame gocv.Mat) (pose entity.PoseFrame, detected bool, err error)
}
