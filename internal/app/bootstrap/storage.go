package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/stepform/stepform/internal/config"
	"github.com/stepform/stepform/internal/uploads"
	"github.com/stepform/stepform/pkg/logging"
)

// BuildFileStore returns the upload destination. S3 when a bucket is
// configured, otherwise an in-memory store for local development.
func BuildFileStore(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) uploads.FileStore {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.UploadsBucket) != "" {
		baseURL := cfg.UploadsBaseURL
		if baseURL == "" {
			baseURL = "https://" + cfg.UploadsBucket + ".s3." + cfg.AWSRegion + ".amazonaws.com"
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// LocalStack needs path-style addressing.
			if cfg.AWSEndpointOverride != "" {
				o.UsePathStyle = true
			}
		})
		logger.Info("upload store configured", "provider", "s3", "bucket", cfg.UploadsBucket)
		return uploads.NewS3Store(client, cfg.UploadsBucket, baseURL)
	}
	logger.Warn("no uploads bucket configured, storing files in memory")
	return uploads.NewMemoryStore()
}
