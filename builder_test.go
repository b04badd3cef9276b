package blogauth

import (
	"strings"
	"testing"
)

func TestBuildRequiresCollaborators(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{
			name:    "redis",
			builder: New().WithConfig(testConfig()).WithIdentityRepository(newMockRepo()).WithNotifier(&recordingNotifier{}),
			want:    "redis client required",
		},
		{
			name:    "repository",
			builder: New().WithConfig(testConfig()).WithRedis(rdb).WithNotifier(&recordingNotifier{}),
			want:    "identity repository required",
		},
		{
			name:    "notifier",
			builder: New().WithConfig(testConfig()).WithRedis(rdb).WithIdentityRepository(newMockRepo()),
			want:    "notifier required",
		},
		{
			name:    "config",
			builder: New().WithRedis(rdb).WithIdentityRepository(newMockRepo()).WithNotifier(&recordingNotifier{}),
			want:    "PrivateKey",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := tc.builder.Build()
			if err == nil {
				engine.Close()
				t.Fatal("expected Build to fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithIdentityRepository(newMockRepo()).
		WithNotifier(&recordingNotifier{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil || err.Error() != "builder already used" {
		t.Fatalf("expected builder already used, got %v", err)
	}
}

func TestBuilderMetricsToggles(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	b := New().WithConfig(cfg).WithMetricsEnabled(true).WithLatencyHistograms(true)
	if !b.config.Metrics.Enabled || !b.config.Metrics.EnableLatencyHistograms {
		t.Fatalf("expected toggles applied, got %+v", b.config.Metrics)
	}
}
