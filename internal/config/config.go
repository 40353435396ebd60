package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // TROVED_DATABASE_URL (required)
	HTTPAddr    string // TROVED_HTTP_ADDR (default ":8779")
	GRPCAddr    string // TROVED_GRPC_ADDR (default ":8780")
	NATSURL     string // TROVED_NATS_URL (optional, empty = no events)
	AuthToken   string // TROVED_AUTH_TOKEN (optional, empty = auth disabled)

	// Defaults applied when a create request omits the datastore block.
	DefaultDatastore string // TROVED_DEFAULT_DATASTORE (default "mysql")
	DefaultVersion   string // TROVED_DEFAULT_DATASTORE_VERSION (default "5.6")

	// Simulated provisioning delays before BUILD/REBOOT settle to ACTIVE.
	BuildSettle   time.Duration // TROVED_BUILD_SETTLE (default 2s)
	RestartSettle time.Duration // TROVED_RESTART_SETTLE (default 2s)

	// Snapshot settings
	SnapshotInterval   time.Duration // TROVED_SNAPSHOT_INTERVAL (default 3m; 0 = disabled)
	SnapshotS3Bucket   string        // TROVED_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // TROVED_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // TROVED_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // TROVED_SNAPSHOT_S3_KEY (default "trove/configurations.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:        os.Getenv("TROVED_DATABASE_URL"),
		HTTPAddr:           envOrDefault("TROVED_HTTP_ADDR", ":8779"),
		GRPCAddr:           envOrDefault("TROVED_GRPC_ADDR", ":8780"),
		NATSURL:            os.Getenv("TROVED_NATS_URL"),
		AuthToken:          os.Getenv("TROVED_AUTH_TOKEN"),
		DefaultDatastore:   envOrDefault("TROVED_DEFAULT_DATASTORE", "mysql"),
		DefaultVersion:     envOrDefault("TROVED_DEFAULT_DATASTORE_VERSION", "5.6"),
		SnapshotS3Bucket:   os.Getenv("TROVED_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("TROVED_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("TROVED_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("TROVED_SNAPSHOT_S3_KEY", "trove/configurations.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("TROVED_DATABASE_URL is required")
	}

	var err error
	if c.BuildSettle, err = envDuration("TROVED_BUILD_SETTLE", 2*time.Second); err != nil {
		return nil, err
	}
	if c.RestartSettle, err = envDuration("TROVED_RESTART_SETTLE", 2*time.Second); err != nil {
		return nil, err
	}
	if c.SnapshotInterval, err = envDuration("TROVED_SNAPSHOT_INTERVAL", 3*time.Minute); err != nil {
		return nil, err
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
