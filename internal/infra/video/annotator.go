package video

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/geometry"
	"github.com/angus-lau/workout-form-optimizer/internal/domain/port"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/metrics"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/overlay"
)

// Annotator implements port.FrameAnnotator: sample frames from a video,
// estimate a pose per frame, compute joint angles, draw the overlay and
// persist each annotated frame as frame_<index>.<format> in outputDir.
type Annotator struct {
	provider port.PoseProvider
	renderer *overlay.Renderer
	interval int
	width    int
	height   int
	format   string
	fallback string
	logger   *zap.Logger
}

type AnnotatorConfig struct {
	SamplingInterval int
	FrameWidth       int
	FrameHeight      int
	FrameFormat      string
	// FallbackText is drawn on frames where no pose was detected.
	FallbackText string
}

func NewAnnotator(provider port.PoseProvider, renderer *overlay.Renderer, cfg AnnotatorConfig, logger *zap.Logger) *Annotator {
	return &Annotator{
		provider: provider,
		renderer: renderer,
		interval: cfg.SamplingInterval,
		width:    cfg.FrameWidth,
		height:   cfg.FrameHeight,
		format:   cfg.FrameFormat,
		fallback: cfg.FallbackText,
		logger:   logger,
	}
}

// AnnotateVideo runs the pipeline over one video. A frame whose pose is
// missing or whose provider call fails degrades to a partial overlay; only
// an unreadable source or an unwritable output directory fails the run.
func (a *Annotator) AnnotateVideo(ctx context.Context, videoPath string, outputDir string) (*port.AnnotationResult, error) {
	sampler, err := NewSampler(videoPath, a.interval, a.width, a.height)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer sampler.Close()

	result := &port.AnnotationResult{
		VideoDuration: sampler.Duration(),
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frame, ok := sampler.Next()
		if !ok {
			break
		}
		path, err := a.annotateFrame(ctx, frame, outputDir, result)
		frame.Mat.Close()
		if err != nil {
			return nil, err
		}
		result.FramePaths = append(result.FramePaths, path)
		result.FrameCount++
		metrics.FramesSampledTotal.Inc()
	}

	if result.FrameCount == 0 {
		return nil, fmt.Errorf("no frames sampled from video")
	}

	a.logger.Info("video annotated",
		zap.Int("frame_count", result.FrameCount),
		zap.Int("poses_detected", result.PosesDetected),
		zap.Float64("video_duration", result.VideoDuration),
	)

	return result, nil
}

func (a *Annotator) annotateFrame(ctx context.Context, frame Frame, outputDir string, result *port.AnnotationResult) (string, error) {
	pose, detected, err := a.provider.EstimatePose(ctx, frame.Mat)
	if err != nil {
		// Provider failures degrade the frame, they never abort the video.
		a.logger.Warn("pose estimation failed", zap.Int("frame", frame.Index), zap.Error(err))
		detected = false
	}

	if detected {
		result.PosesDetected++
		metrics.PosesDetectedTotal.Inc()

		angles := geometry.Angles(pose)
		for name := range angles {
			metrics.AnglesComputedTotal.WithLabelValues(name).Inc()
		}
		joints := overlay.ProjectToPixels(pose, a.width, a.height)
		a.renderer.DrawSkeleton(&frame.Mat, joints, angles)
	} else {
		metrics.PosesMissedTotal.Inc()
		if a.fallback != "" {
			a.renderer.FeedbackText(&frame.Mat, a.fallback)
		}
	}

	path := filepath.Join(outputDir, fmt.Sprintf("frame_%d.%s", frame.Index, a.format))
	if ok := gocv.IMWrite(path, frame.Mat); !ok {
		return "", fmt.Errorf("write frame %s", path)
	}
	return path, nil
}
