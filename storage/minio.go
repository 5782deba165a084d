package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"FretLab/config"
	"FretLab/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	bucket      string
)

// AudioObjectName returns the object key of a lesson stem.
func AudioObjectName(lessonID, track string) string {
	return fmt.Sprintf("audio/%s/%s.mp3", lessonID, track)
}

// PeaksObjectName returns the object key of a stem's peak summary.
func PeaksObjectName(lessonID, track string) string {
	return fmt.Sprintf("peaks/%s/%s.json", lessonID, track)
}

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucket = cfg.MinioBucket

	logger.Info("connected to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the shared MinIO client, or nil if not initialized.
func GetMinioClient() *minio.Client {
	return minioClient
}

// Bucket returns the configured bucket name.
func Bucket() string {
	return bucket
}

// GetAudio opens a lesson stem object for reading. The object supports
// ReadAt/Seek, which lets the HTTP layer serve Range requests.
func GetAudio(ctx context.Context, lessonID, track string) (*minio.Object, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("minio client not initialized")
	}
	return minioClient.GetObject(ctx, bucket, AudioObjectName(lessonID, track), minio.GetObjectOptions{})
}

// StatAudio checks that a lesson stem exists and returns its object info.
func StatAudio(ctx context.Context, lessonID, track string) (minio.ObjectInfo, error) {
	if minioClient == nil {
		return minio.ObjectInfo{}, fmt.Errorf("minio client not initialized")
	}
	return minioClient.StatObject(ctx, bucket, AudioObjectName(lessonID, track), minio.StatObjectOptions{})
}

// UploadAudio stores a lesson stem.
func UploadAudio(ctx context.Context, lessonID, track string, r io.Reader, size int64) error {
	if minioClient == nil {
		return fmt.Errorf("minio client not initialized")
	}
	_, err := minioClient.PutObject(ctx, bucket, AudioObjectName(lessonID, track), r, size, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return fmt.Errorf("failed to upload audio object: %w", err)
	}
	return nil
}

// UploadPeaks stores a serialized peak summary next to its stem.
func UploadPeaks(ctx context.Context, lessonID, track string, data []byte) error {
	if minioClient == nil {
		return fmt.Errorf("minio client not initialized")
	}
	_, err := minioClient.PutObject(ctx, bucket, PeaksObjectName(lessonID, track),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to upload peaks object: %w", err)
	}
	return nil
}

// GetPeaks reads a serialized peak summary. Returns (nil, nil) when the
// object does not exist; a stem without stored peaks is normal.
func GetPeaks(ctx context.Context, lessonID, track string) ([]byte, error) {
	if minioClient == nil {
		return nil, fmt.Errorf("minio client not initialized")
	}

	obj, err := minioClient.GetObject(ctx, bucket, PeaksObjectName(lessonID, track), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// RemoveLesson deletes every object belonging to a lesson.
func RemoveLesson(ctx context.Context, lessonID string) error {
	if minioClient == nil {
		return fmt.Errorf("minio client not initialized")
	}

	var firstErr error
	for _, track := range []string{"guitar", "vocals"} {
		for _, name := range []string{AudioObjectName(lessonID, track), PeaksObjectName(lessonID, track)} {
			if err := minioClient.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
