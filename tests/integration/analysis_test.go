package integration

import (
	"archive/zip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/angus-lau/workout-form-optimizer/internal/domain/entity"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/email"
	miniostorage "github.com/angus-lau/workout-form-optimizer/internal/infra/minio"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/overlay"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/pose"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/postgres"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/rabbitmq"
	"github.com/angus-lau/workout-form-optimizer/internal/infra/video"
	"github.com/angus-lau/workout-form-optimizer/internal/usecase"
	"github.com/angus-lau/workout-form-optimizer/pkg/logger"
)

type testEnv struct {
	pgConnStr     string
	rmqURL        string
	minioEndpoint string
}

func startEnv(t *testing.T, ctx context.Context) *testEnv {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("jobs"),
		tcpostgres.WithUsername("job_user"),
		tcpostgres.WithPassword("job_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rmqContainer, err := tcrabbitmq.Run(ctx,
		"rabbitmq:3.12-management-alpine",
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rmqContainer.Terminate(ctx) })

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = minioContainer.Terminate(ctx) })

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	require.NoError(t, postgres.RunMigrations(pgConnStr, "../../migrations"))

	return &testEnv{
		pgConnStr:     pgConnStr,
		rmqURL:        rmqURL,
		minioEndpoint: minioEndpoint,
	}
}

// writeTestVideo encodes a short synthetic exercise clip.
func writeTestVideo(t *testing.T, path string, frames int) {
	t.Helper()
	vw, err := gocv.VideoWriterFile(path, "MJPG", 10, 320, 240, true)
	require.NoError(t, err)
	defer vw.Close()

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()
	for i := 0; i < frames; i++ {
		require.NoError(t, vw.Write(img))
	}
}

func TestAnalyzeVideoEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	env := startEnv(t, ctx)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     env.minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		ResultBucket: "results",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	testVideoPath := filepath.Join(t.TempDir(), "squat.avi")
	writeTestVideo(t, testVideoPath, 25)

	minioClient, err := miniogo.New(env.minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	videoKey := "testuser/squat.avi"
	_, err = minioClient.FPutObject(ctx, "uploads", videoKey, testVideoPath, miniogo.PutObjectOptions{
		ContentType: "video/x-msvideo",
	})
	require.NoError(t, err)

	rmqConn, err := amqp.Dial(env.rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "formopt.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.analysis.dlq")

	pool, err := pgxpool.New(ctx, env.pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	log, _ := logger.New("debug")
	repo := postgres.NewJobRepository(pool)
	renderer := overlay.NewRenderer(overlay.DefaultStyle())
	annotator := video.NewAnnotator(pose.NewFixedProvider(pose.DemoPose()), renderer, video.AnnotatorConfig{
		SamplingInterval: 10,
		FrameWidth:       224,
		FrameHeight:      224,
		FrameFormat:      "jpg",
		FallbackText:     "no pose detected",
	}, log)
	zipper := video.NewZipCreator()
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewAnalyzeVideoUseCase(
		repo, storage, annotator, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         env.rmqURL,
		Queue:       "video.analysis",
		Exchange:    "formopt.video",
		DLQ:         "video.analysis.dlq",
		StatusQueue: "video.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()

	// Give consumer time to start
	time.Sleep(500 * time.Millisecond)

	jobID := uuid.New()
	videoInfo, _ := os.Stat(testVideoPath)
	analysisMsg := entity.VideoAnalysisMessage{
		JobID:     jobID,
		UserID:    "testuser",
		VideoKey:  videoKey,
		FileSize:  videoInfo.Size(),
		UserEmail: "test@test.local",
	}
	msgBody, err := json.Marshal(analysisMsg)
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"formopt.video",
		"video.analysis",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msgBody,
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume("video.status", "", true, false, false, false, nil)
	require.NoError(t, err)

	var statusMsg entity.AnalysisStatusMessage
	select {
	case delivery := <-statusMsgs:
		err = json.Unmarshal(delivery.Body, &statusMsg)
		require.NoError(t, err)
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	assert.Equal(t, jobID, statusMsg.JobID)
	assert.Equal(t, entity.JobStatusCompleted, statusMsg.Status)
	assert.Equal(t, 3, statusMsg.FrameCount)
	assert.Equal(t, 3, statusMsg.PosesDetected)
	assert.NotEmpty(t, statusMsg.ZipKey)

	// The uploaded archive carries one annotated image per sampled frame,
	// named by the saved-frame counter.
	zipObj, err := minioClient.GetObject(ctx, "results", statusMsg.ZipKey, miniogo.GetObjectOptions{})
	require.NoError(t, err)

	tmpZip := filepath.Join(t.TempDir(), "result.zip")
	tmpFile, err := os.Create(tmpZip)
	require.NoError(t, err)
	_, err = tmpFile.ReadFrom(zipObj)
	require.NoError(t, err)
	tmpFile.Close()

	zipReader, err := zip.OpenReader(tmpZip)
	require.NoError(t, err)
	defer zipReader.Close()

	names := make(map[string]bool)
	for _, f := range zipReader.File {
		if strings.HasSuffix(f.Name, ".jpg") {
			names[f.Name] = true
		}
	}
	assert.Equal(t, statusMsg.FrameCount, len(names))
	for _, want := range []string{"frame_0.jpg", "frame_1.jpg", "frame_2.jpg"} {
		assert.True(t, names[want], "missing %s in result archive", want)
	}

	var dbStatus string
	var dbFrameCount, dbPoses int
	err = pool.QueryRow(ctx,
		"SELECT status, frame_count, poses_detected FROM analysis_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &dbFrameCount, &dbPoses)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, 3, dbFrameCount)
	assert.Equal(t, 3, dbPoses)

	consumerCancel()

	t.Logf("Test passed: %d frames annotated, ZIP at %s", dbFrameCount, statusMsg.ZipKey)
}

func TestNewConsumerTopologyMismatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rmqContainer.Terminate(ctx) })

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Pre-declare the exchange with a conflicting type so consumer setup
	// fails mid-topology rather than at dial time.
	conn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	require.NoError(t, ch.ExchangeDeclare("formopt.video", "direct", true, false, false, false, nil))
	ch.Close()

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         rmqURL,
		Queue:       "video.analysis",
		Exchange:    "formopt.video",
		DLQ:         "video.analysis.dlq",
		StatusQueue: "video.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, func(context.Context, []byte) error { return nil }, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, consumer)
	assert.Contains(t, err.Error(), "declare exchange")
}

func TestAnalyzeVideoMalformedMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	env := startEnv(t, ctx)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     env.minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UseSSL:       false,
		UploadBucket: "uploads",
		ResultBucket: "results",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	pool, err := pgxpool.New(ctx, env.pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	log := zap.NewNop()
	rmqConn, err := amqp.Dial(env.rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, "formopt.video")
	require.NoError(t, err)

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, "video.analysis.dlq")

	repo := postgres.NewJobRepository(pool)
	renderer := overlay.NewRenderer(overlay.DefaultStyle())
	annotator := video.NewAnnotator(pose.NewFixedProvider(pose.DemoPose()), renderer, video.AnnotatorConfig{
		SamplingInterval: 10,
		FrameWidth:       224,
		FrameHeight:      224,
		FrameFormat:      "jpg",
		FallbackText:     "no pose detected",
	}, log)
	zipper := video.NewZipCreator()
	notifier := email.NewSMTPNotifier("localhost", 1025, "test@test.local", log)

	uc := usecase.NewAnalyzeVideoUseCase(
		repo, storage, annotator, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.AnalyzeVideoConfig{
			TempDir:    t.TempDir(),
			MaxRetries: 3,
		},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         env.rmqURL,
		Queue:       "video.analysis",
		Exchange:    "formopt.video",
		DLQ:         "video.analysis.dlq",
		StatusQueue: "video.status",
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()

	go func() {
		consumer.Start(consumerCtx)
	}()
	time.Sleep(500 * time.Millisecond)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx,
		"formopt.video",
		"video.analysis",
		false, false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(`{invalid json`),
		},
	)
	require.NoError(t, err)
	pubCh.Close()

	time.Sleep(2 * time.Second)

	dlqCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer dlqCh.Close()

	dlqMsg, ok, err := dlqCh.Get("video.analysis.dlq", true)
	require.NoError(t, err)
	assert.True(t, ok, "malformed message should be in DLQ")
	assert.Equal(t, `{invalid json`, string(dlqMsg.Body))

	consumerCancel()
	t.Log("Test passed: malformed message sent to DLQ")
}
