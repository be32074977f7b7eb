package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formopt_jobs_processed_total",
		Help: "Total number of analysis jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "formopt_job_processing_duration_seconds",
		Help:    "Duration of the video analysis pipeline",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formopt_frames_sampled_total",
		Help: "Total number of frames sampled across all jobs",
	})

	PosesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formopt_poses_detected_total",
		Help: "Total number of sampled frames with a detected pose",
	})

	PosesMissedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formopt_poses_missed_total",
		Help: "Total number of sampled frames without a detectable pose",
	})

	AnglesComputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formopt_angles_computed_total",
		Help: "Total number of joint angles computed, by angle name",
	}, []string{"angle"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "formopt_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formopt_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
