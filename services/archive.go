package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schedboard/config"
	"schedboard/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const archivePrefix = "archive/published/"

// ArchiveService keeps a gzipped JSON copy of every published snapshot in
// S3 and sweeps copies older than the configured retention horizon.
type ArchiveService struct {
	s3Client      *s3.S3
	bucket        string
	retentionDays int
	cron          *cron.Cron
}

// NewArchiveService creates the archive service from the app configuration.
func NewArchiveService() (*ArchiveService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AppConfig.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &ArchiveService{
		s3Client:      s3.New(sess),
		bucket:        config.AppConfig.S3BucketName,
		retentionDays: config.AppConfig.ArchiveRetentionDays,
	}, nil
}

// ArchiveSnapshot uploads one published snapshot, gzip-compressed, under a
// timestamped key.
func (a *ArchiveService) ArchiveSnapshot(ctx context.Context, snap models.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(doc); err != nil {
		return fmt.Errorf("failed to compress snapshot: %v", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress snapshot: %v", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s%s/snapshot-%s.json.gz", archivePrefix, now.Format("2006/01/02"), now.Format("150405"))

	_, err = a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot archive: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"key":   key,
		"bytes": buf.Len(),
	}).Info("Archived published snapshot")
	return nil
}

// StartRetentionSweep schedules a nightly deletion of archives older than
// the retention horizon.
func (a *ArchiveService) StartRetentionSweep() {
	a.cron = cron.New()
	_, err := a.cron.AddFunc("0 3 * * *", func() {
		if err := a.sweep(context.Background()); err != nil {
			logrus.WithError(err).Error("Archive retention sweep failed")
		}
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to schedule archive retention sweep")
		return
	}
	a.cron.Start()
}

// Stop halts the retention scheduler.
func (a *ArchiveService) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}
}

func (a *ArchiveService) sweep(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)
	var deleted int

	err := a.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(archivePrefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Key == nil || obj.LastModified == nil || !obj.LastModified.Before(cutoff) {
				continue
			}
			_, err := a.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(a.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				logrus.WithError(err).WithField("key", *obj.Key).Warn("Failed to delete expired archive")
				continue
			}
			deleted++
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list archives: %v", err)
	}

	logrus.WithField("deleted", deleted).Info("Archive retention sweep completed")
	return nil
}
