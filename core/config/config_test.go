package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SKIP", "SKIP_HOOKUP", "GIT_REFLOG_ACTION",
		"HOOKUP_WORKING_DIR", "HOOKUP_SCHEMA_DIR", "HOOKUP_LOAD_SCHEMA", "HOOKUP_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()

	cfg, err := Load(fs, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.WorkingDir)
	assert.Equal(t, "db", cfg.SchemaDir)
	assert.Empty(t, cfg.LoadSchemaFallback)
	assert.False(t, cfg.Skip)
	assert.False(t, cfg.Debug)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("app/database", 0o755))

	t.Setenv("HOOKUP_WORKING_DIR", "app")
	t.Setenv("HOOKUP_SCHEMA_DIR", "database")
	t.Setenv("HOOKUP_LOAD_SCHEMA", "rake db:schema:load")
	t.Setenv("GIT_REFLOG_ACTION", "pull --rebase")

	cfg, err := Load(fs, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.WorkingDir)
	assert.Equal(t, "database", cfg.SchemaDir)
	assert.Equal(t, "rake db:schema:load", cfg.LoadSchemaFallback)
	assert.Equal(t, "pull --rebase", cfg.ReflogAction)
}

func TestLoad_MissingSchemaDirFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOOKUP_SCHEMA_DIR", "nowhere")

	cfg, err := Load(afero.NewMemMapFs(), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchemaDir, cfg.SchemaDir)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("svc/schema", 0o755))
	t.Setenv("HOOKUP_LOAD_SCHEMA", "from-env")
	t.Setenv("HOOKUP_WORKING_DIR", "elsewhere")

	cfg, err := Load(fs, Overrides{
		WorkingDir:         "svc",
		SchemaDir:          "schema",
		LoadSchemaFallback: "from-flag",
		Debug:              true,
	})
	require.NoError(t, err)

	assert.Equal(t, "svc", cfg.WorkingDir)
	assert.Equal(t, "schema", cfg.SchemaDir)
	assert.Equal(t, "from-flag", cfg.LoadSchemaFallback)
	assert.True(t, cfg.Debug)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("db/primary", 0o755))
	require.NoError(t, afero.WriteFile(fs, FileName, []byte("schema_dir: db/primary\nload_schema: bin/rails db:schema:load\n"), 0o644))

	t.Setenv("HOOKUP_LOAD_SCHEMA", "env-wins")

	cfg, err := Load(fs, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "db/primary", cfg.SchemaDir)
	assert.Equal(t, "env-wins", cfg.LoadSchemaFallback)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	clearEnv(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, FileName, []byte("schema_dir: [unterminated\n"), 0o644))

	_, err := Load(fs, Overrides{})
	assert.Error(t, err)
}

func TestLoad_Skip(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{name: "unset", want: false},
		{name: "SKIP=1", env: map[string]string{"SKIP": "1"}, want: true},
		{name: "SKIP lists other hooks", env: map[string]string{"SKIP": "rubocop,eslint"}, want: false},
		{name: "SKIP_HOOKUP any value", env: map[string]string{"SKIP_HOOKUP": "yes please"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(afero.NewMemMapFs(), Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Skip)
		})
	}
}
