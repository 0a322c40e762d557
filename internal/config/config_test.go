package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "agritrack.db" {
		t.Fatalf("unexpected storage defaults %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "fs" {
		t.Fatalf("unexpected blob default %+v", cfg.Blob)
	}
	if !cfg.SeedDemo {
		t.Fatalf("expected demo seed enabled by default")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AGRITRACK_LISTEN_ADDR", ":9090")
	t.Setenv("AGRITRACK_AUTH_TOKEN", "petani-001")
	t.Setenv("AGRITRACK_STORAGE_DRIVER", "postgres")
	t.Setenv("AGRITRACK_POSTGRES_DSN", "postgres://localhost/agritrack")
	t.Setenv("AGRITRACK_BLOB_DRIVER", "s3")
	t.Setenv("AGRITRACK_BLOB_S3_BUCKET", "traces")
	t.Setenv("AGRITRACK_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("AGRITRACK_SEED_DEMO", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.AuthToken != "petani-001" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Storage.Driver != "postgres" || cfg.Storage.PostgresDSN != "postgres://localhost/agritrack" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Blob.Driver != "s3" || cfg.Blob.S3Bucket != "traces" || !cfg.Blob.S3PathStyle {
		t.Fatalf("unexpected blob %+v", cfg.Blob)
	}
	if cfg.SeedDemo {
		t.Fatalf("expected demo seed disabled")
	}
}

func TestLoadRejectsMalformedBool(t *testing.T) {
	t.Setenv("AGRITRACK_SEED_DEMO", "yes-please")
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
