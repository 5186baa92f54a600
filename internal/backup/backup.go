// Package backup uploads the portfolio database and history files to S3
// on a schedule.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/mveron/foliotrack/internal/events"
)

const uploadTimeout = 5 * time.Minute

// Config holds backup settings. An empty Bucket disables the job.
type Config struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether backups are configured
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// Job uploads the main database file and every history database to S3.
// Implements scheduler.Job.
type Job struct {
	cfg        Config
	dbPath     string
	historyDir string
	uploader   *manager.Uploader
	events     *events.Manager
	log        zerolog.Logger
}

// NewJob creates the backup job. Credentials fall back to the default
// chain (env, shared config, instance role) when not set explicitly.
func NewJob(ctx context.Context, cfg Config, dbPath, historyDir string, em *events.Manager, log zerolog.Logger) (*Job, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Job{
		cfg:        cfg,
		dbPath:     dbPath,
		historyDir: historyDir,
		uploader:   manager.NewUploader(s3.NewFromConfig(awsCfg)),
		events:     em,
		log:        log.With().Str("job", "backup").Logger(),
	}, nil
}

// Name implements scheduler.Job
func (j *Job) Name() string {
	return "backup"
}

// Run implements scheduler.Job. Each run uploads under a date-stamped
// prefix so previous backups are retained.
func (j *Job) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	prefix := time.Now().UTC().Format("2006-01-02")

	uploaded, err := j.uploadAll(ctx, prefix)
	if err != nil {
		return err
	}

	j.log.Info().Int("files", uploaded).Str("prefix", prefix).Msg("Backup completed")
	j.events.Emit(events.BackupCompleted, "backup", map[string]interface{}{
		"bucket": j.cfg.Bucket,
		"prefix": prefix,
		"files":  uploaded,
	})

	return nil
}

func (j *Job) uploadAll(ctx context.Context, prefix string) (int, error) {
	uploaded := 0

	if err := j.uploadFile(ctx, j.dbPath, prefix+"/"+filepath.Base(j.dbPath)); err != nil {
		return uploaded, err
	}
	uploaded++

	entries, err := os.ReadDir(j.historyDir)
	if os.IsNotExist(err) {
		return uploaded, nil
	}
	if err != nil {
		return uploaded, fmt.Errorf("failed to read history directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		path := filepath.Join(j.historyDir, entry.Name())
		if err := j.uploadFile(ctx, path, prefix+"/history/"+entry.Name()); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	return uploaded, nil
}

func (j *Job) uploadFile(ctx context.Context, path, key string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	_, err = j.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(j.cfg.Bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	j.log.Debug().Str("key", key).Msg("Uploaded backup object")
	return nil
}
