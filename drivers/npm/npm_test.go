package npm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		lock string
		name string
		dir  string
	}{
		{"/repo/yarn.lock", "yarn", "/repo"},
		{"/repo/web/package-lock.json", "npm", "/repo/web"},
		{"/repo/app/pnpm-lock.yaml", "pnpm", "/repo/app"},
	}
	for _, tt := range tests {
		t.Run(tt.lock, func(t *testing.T) {
			cmd, err := Command(tt.lock)
			require.NoError(t, err)
			assert.Equal(t, tt.name, cmd.Name)
			assert.Equal(t, []string{"install"}, cmd.Args)
			assert.Equal(t, tt.dir, cmd.Dir)
		})
	}
}

func TestInstallPackages_UnknownLockFile(t *testing.T) {
	err := New(nil).InstallPackages(context.Background(), "/repo/Cargo.lock")
	assert.ErrorContains(t, err, "unsupported lock file")
}
