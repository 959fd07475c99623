package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse()
	require.NoError(err)

	require.Equal("development", cfg.Environment)
	require.True(cfg.IsDevelopment())
	require.Equal(8080, cfg.Port)
	require.Equal([]string{"*"}, cfg.AllowedOrigins)
	require.Equal(5000, cfg.MaxContentBytes)
	require.Equal(BackendNone, cfg.PersistBackend)
	require.Equal(1024, cfg.PersistQueueSize)
	require.Equal(4, cfg.PersistWorkers)
	require.Equal(5*time.Second, cfg.PersistTimeout)
	require.Equal("auto", cfg.S3.Region)
}

func TestParseOverrides(t *testing.T) {
	require := require.New(t)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("MAX_CONTENT_BYTES", "200")
	t.Setenv("PERSIST_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://chat@db/chat")
	t.Setenv("PERSIST_TIMEOUT", "250ms")

	cfg, err := Parse()
	require.NoError(err)

	require.False(cfg.IsDevelopment())
	require.Equal(9090, cfg.Port)
	require.Equal([]string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	require.Equal(200, cfg.MaxContentBytes)
	require.Equal("postgres://chat@db/chat", cfg.DatabaseDSN)
	require.Equal(250*time.Millisecond, cfg.PersistTimeout)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"port out of range":    {"PORT": "80"},
		"unknown backend":      {"PERSIST_BACKEND": "redis"},
		"zero content limit":   {"MAX_CONTENT_BYTES": "0"},
		"not a number":         {"PERSIST_WORKERS": "many"},
		"postgres without dsn": {"ENVIRONMENT": "production", "PERSIST_BACKEND": "postgres"},
		"s3 without bucket": {
			"PERSIST_BACKEND":      "s3",
			"S3_ENDPOINT":          "https://s3.example.com",
			"S3_ACCESS_KEY_ID":     "key",
			"S3_SECRET_ACCESS_KEY": "secret",
		},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.Error(t, err)
		})
	}
}

func TestPostgresDSNDefaultsInDevelopment(t *testing.T) {
	require := require.New(t)

	t.Setenv("PERSIST_BACKEND", "postgres")

	cfg, err := Parse()
	require.NoError(err)
	require.NotEmpty(cfg.DatabaseDSN)
}

func TestS3Backend(t *testing.T) {
	require := require.New(t)

	t.Setenv("PERSIST_BACKEND", "s3")
	t.Setenv("S3_BUCKET_NAME", "chat-archive")
	t.Setenv("S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("S3_REGION", "eu-central-1")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Parse()
	require.NoError(err)
	require.Equal(S3Config{
		BucketName:      "chat-archive",
		Endpoint:        "https://s3.example.com",
		Region:          "eu-central-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, cfg.S3)
}
