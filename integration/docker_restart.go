//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
)

func restartContainer(t *testing.T, ctx context.Context, svc string) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "docker", "compose", "restart", svc)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("docker compose restart %s failed: %v\n%s", svc, err, string(out))
	}
}
