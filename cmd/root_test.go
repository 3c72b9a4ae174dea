package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"analyze", "scan", "projects", "datasets", "runs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "proximity-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "root should have --%s", name)
	}
}

func TestRootCommand_LoadsConfigFile(t *testing.T) {
	prev, prevPath, prevLevel := cfg, configPath, logLevel
	t.Cleanup(func() { cfg, configPath, logLevel = prev, prevPath, prevLevel })

	configPath = filepath.Join(t.TempDir(), "proximity.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("analysis:\n  scan_radius_km: 33\nlog:\n  format: console\n"), 0o644))
	logLevel = "debug"

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.InDelta(t, 33.0, cfg.Analysis.ScanRadiusKM, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	prev, prevPath := cfg, configPath
	t.Cleanup(func() { cfg, configPath = prev, prevPath })

	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"lon", "lat", "name", "permit", "operator", "project", "radius", "json", "limit", "record"} {
		require.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s", name)
	}
	assert.Equal(t, "10", analyzeCmd.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "false", analyzeCmd.Flags().Lookup("record").DefValue)
}

func TestScanCommand_Flags(t *testing.T) {
	for _, name := range []string{"lon", "lat", "project", "radius", "json"} {
		require.NotNil(t, scanCmd.Flags().Lookup(name), "scan should have --%s", name)
	}
}

func TestSubcommandTrees(t *testing.T) {
	sub := func(parent string) map[string]bool {
		out := map[string]bool{}
		for _, c := range rootCmd.Commands() {
			if c.Name() != parent {
				continue
			}
			for _, s := range c.Commands() {
				out[s.Name()] = true
			}
		}
		return out
	}

	assert.True(t, sub("projects")["list"])
	assert.True(t, sub("projects")["show"])
	assert.True(t, sub("datasets")["check"])
	assert.True(t, sub("runs")["list"])
	assert.True(t, sub("runs")["show"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
