package config

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/yamb/internal/resource"
)

func TestLoad_Defaults(t *testing.T) {

	cfg, err := Load(New(afero.NewMemMapFs()), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, "dist", cfg.Output)
	assert.Equal(t, []resource.Root{{Path: "."}}, cfg.Sources)
	assert.Equal(t, DefaultRuntimeVersion, cfg.RuntimeVersion)

	lvl, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, log.InfoLevel, lvl)
}

func TestLoad_File(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/project/yamb.yaml", []byte(`
sources:
  - path: webapp
    prefix: my/app
  - path: node_modules/openui5/resources
output: build
workers: 2
ignore-globals: [jQuery, sap]
runtime-version: 2.0.0
`), 0o644))

	cfg, err := Load(New(fs), "/project/yamb.yaml")
	require.NoError(t, err)
	assert.Equal(t, []resource.Root{
		{Path: "webapp", Prefix: "my/app"},
		{Path: "node_modules/openui5/resources"},
	}, cfg.Sources)
	assert.Equal(t, "build", cfg.Output)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"jQuery", "sap"}, cfg.IgnoreGlobals)

	ver, err := cfg.Runtime()
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver.Major())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("YAMB_WORKERS", "3")
	t.Setenv("YAMB_IGNORE_MISSING_MODULES", "true")

	cfg, err := Load(New(afero.NewMemMapFs()), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.IgnoreMissingModules)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero workers", "workers: 0\n"},
		{"bad runtime", "runtime-version: latest\n"},
		{"bad log level", "log-level: loud\n"},
		{"source without path", "sources:\n  - prefix: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/yamb.yaml", []byte(tt.content), 0o644))
			_, err := Load(New(fs), "/yamb.yaml")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(afero.NewMemMapFs()), "/nope/yamb.yaml")
	assert.Error(t, err)
}
