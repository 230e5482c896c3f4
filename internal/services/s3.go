package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ArtifactStore uploads built wheels to S3 so every published image has a
// retrievable copy of the package it ships.
type ArtifactStore struct {
	client *s3.Client
	bucket string
}

// NewArtifactStore creates an ArtifactStore for the given bucket.
func NewArtifactStore(client *s3.Client, bucket string) *ArtifactStore {
	return &ArtifactStore{
		client: client,
		bucket: bucket,
	}
}

// UploadWheel stores the wheel under {image}/{mode}/{runID}/{filename} and
// returns the object key.
func (a *ArtifactStore) UploadWheel(ctx context.Context, image, mode, runID, wheelPath string) (string, error) {
	file, err := os.Open(wheelPath)
	if err != nil {
		return "", fmt.Errorf("opening wheel %s: %w", wheelPath, err)
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%s/%s/%s", image, mode, runID, filepath.Base(wheelPath))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("uploading wheel to s3://%s/%s: %w", a.bucket, key, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("bucket", a.bucket).
		Str("key", key).
		Msg("Wheel uploaded")
	return key, nil
}
