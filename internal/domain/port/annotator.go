package port

import "context"

type AnnotationResult struct {
	FramePaths    []string
	FrameCount    int
	PosesDetected int
	VideoDuration float64
}

// FrameAnnotator runs the sampling, pose estimation and overlay pipeline
// over one video, writing annotated frame images into outputDir.
type FrameAnnotator interface {
	AnnotateVideo(ctx context.Context, videoPath string, outputDir string) (*AnnotationResult, error)
}
