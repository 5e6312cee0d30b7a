package tracing

import (
	"testing"

	"github.com/54b3r/docrag-go/internal/logging"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	cfg := ConfigFromEnv()
	if cfg.Host != defaultHost {
		t.Errorf("Host: got %q", cfg.Host)
	}
	if cfg.Enabled() {
		t.Error("expected tracing disabled without a secret key")
	}
}

func TestInstall_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	flush := Install(Config{}, logging.Discard())
	if flush == nil {
		t.Fatal("expected a non-nil flush function")
	}
	flush()
}
