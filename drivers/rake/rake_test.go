package rake

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emenda-labs/hookup/core/driver"
	"github.com/emenda-labs/hookup/pkg/shell"
)

func TestCommand_Resolution(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New(fs, "/app", shell.NewRunner("/app", nil))

	cmd := r.Command("db:migrate")
	assert.Equal(t, "rake", cmd.Name)
	assert.Equal(t, []string{"db:migrate"}, cmd.Args)
	assert.Equal(t, "/app", cmd.Dir)

	require.NoError(t, afero.WriteFile(fs, "/app/Gemfile", []byte(""), 0o644))
	cmd = r.Command("db:migrate")
	assert.Equal(t, "bundle", cmd.Name)
	assert.Equal(t, []string{"exec", "rake", "db:migrate"}, cmd.Args)

	require.NoError(t, afero.WriteFile(fs, "/app/bin/rake", []byte("#!/usr/bin/env ruby\n"), 0o644))
	assert.Equal(t, "bundle", r.Command().Name, "a non-executable binstub is ignored")

	require.NoError(t, fs.Chmod("/app/bin/rake", 0o755))
	assert.Equal(t, "bin/rake", r.Command().Name)
}

func TestRunTask_UnknownTask(t *testing.T) {
	r := New(afero.NewMemMapFs(), "/app", shell.NewRunner("/app", nil))
	err := r.RunTask(context.Background(), driver.Task("db:drop"))
	assert.Error(t, err)
}
