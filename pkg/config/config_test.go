package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/host-exporters/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	def := config.NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.String("log.level", def.Log.Level, "")
	f.String("log.format", def.Log.Format, "")
	f.String("log.path", def.Log.Path, "")
	f.Int("log.max-size", def.Log.MaxSize, "")
	f.Int("log.max-backup", def.Log.MaxBackup, "")
	f.Int("log.max-age", def.Log.MaxAge, "")
	f.Duration("server.read-timeout", def.Server.ReadTimeout, "")
	f.Duration("server.write-timeout", def.Server.WriteTimeout, "")
	f.String("path.procfs", def.Path.Procfs, "")
	f.String("path.sysfs", def.Path.Sysfs, "")
	f.Bool("banner", def.Banner, "")
	f.String("banner-color", def.BannerColor, "")
	require.NoError(t, f.Parse(args))
	return cmd
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigWithCliDefaults(t *testing.T) {
	cfg, err := config.LoadConfigWithCli(newCommand(t))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/proc", cfg.Path.Procfs)
	assert.Zero(t, cfg.Server.ReadTimeout)
	assert.Equal(t, "blue", cfg.BannerColor)
}

func TestLoadConfigWithCliFlagsAndEnv(t *testing.T) {
	t.Setenv("EXPORTER_LOG_LEVEL", "debug")
	t.Setenv("EXPORTER_SERVER_WRITE_TIMEOUT", "3s")

	cfg, err := config.LoadConfigWithCli(newCommand(t, "--server.read-timeout=5s", "--path.procfs=/host/proc"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "/host/proc", cfg.Path.Procfs)
}

func TestLoadConfigWithCliInvalid(t *testing.T) {
	_, err := config.LoadConfigWithCli(newCommand(t, "--log.level=verbose"))
	require.Error(t, err)

	_, err = config.LoadConfigWithCli(newCommand(t, "--server.read-timeout=1h"))
	require.Error(t, err)

	_, err = config.LoadConfigWithCli(newCommand(t, "--banner-color=purple"))
	require.Error(t, err)
}

func TestLogPathIsCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	_, err := config.LoadConfigWithCli(newCommand(t, "--log.path="+dir))
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestLoadCgroupConfig(t *testing.T) {
	path := writeFile(t, "cgroup.yml", `
opaque_paths:
  - /system.slice/
ignore_names:
  - "*.mount"
  - user-*.slice
`)
	cfg, err := config.LoadCgroupConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"system.slice"}, cfg.OpaquePaths)
	assert.Equal(t, []string{"*.mount", "user-*.slice"}, cfg.IgnoreNames)
}

func TestLoadCgroupConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.yml")

	cfg, err := config.LoadCgroupConfig(missing, false)
	require.NoError(t, err)
	assert.Empty(t, cfg.OpaquePaths)

	_, err = config.LoadCgroupConfig(missing, true)
	require.Error(t, err)
}

func TestLoadCgroupConfigBadPattern(t *testing.T) {
	path := writeFile(t, "cgroup.yml", "ignore_names: [\"[\"]\n")
	_, err := config.LoadCgroupConfig(path, true)
	require.Error(t, err)
}

func TestLoadProcessConfig(t *testing.T) {
	path := writeFile(t, "process.yml", `
process_names:
  - name: web
    comm: [nginx, httpd]
  - exe: [postgres]
    cmdline: ["-D /var/lib/.*"]
  - {}
`)
	cfg, err := config.LoadProcessConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.ProcessNames, 3)
	assert.Equal(t, "web", cfg.ProcessNames[0].Name)
	assert.Equal(t, []string{"nginx", "httpd"}, cfg.ProcessNames[0].Comm)
	assert.Equal(t, []string{"postgres"}, cfg.ProcessNames[1].Exe)
	assert.Equal(t, []string{"-D /var/lib/.*"}, cfg.ProcessNames[1].Cmdline)
}

func TestLoadProcessConfigErrors(t *testing.T) {
	_, err := config.LoadProcessConfig(writeFile(t, "p.yml", "other: 1\n"))
	require.Error(t, err)

	_, err = config.LoadProcessConfig(writeFile(t, "p.yml", "process_names:\n  - cmdline: [\"(\"]\n"))
	require.Error(t, err)
}

func TestLoadPingConfig(t *testing.T) {
	cfg, err := config.LoadPingConfig(writeFile(t, "ping.yml", "- 192.0.2.1\n- 198.51.100.7\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1", "198.51.100.7"}, cfg.Addresses)

	cfg, err = config.LoadPingConfig(writeFile(t, "ping.yml", "addresses:\n  - 203.0.113.9\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.9"}, cfg.Addresses)
}

func TestLoadPingConfigErrors(t *testing.T) {
	for name, content := range map[string]string{
		"ipv6":   "- \"2001:db8::1\"\n",
		"scalar": "192.0.2.1\n",
		"empty":  "",
		"name":   "- example.com\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadPingConfig(writeFile(t, "ping.yml", content))
			require.Error(t, err)
		})
	}
}

func TestLoadMultiConfig(t *testing.T) {
	cfg, err := config.LoadMultiConfig(writeFile(t, "multi.yml", `
sources:
  - /run/prometheus/kernel.socket
  - "@cgroup-exporter"
  - http://127.0.0.1:9100/metrics
`))
	require.NoError(t, err)
	assert.Len(t, cfg.Sources, 3)

	_, err = config.LoadMultiConfig(writeFile(t, "multi.yml", "sources:\n  - ftp://example.com/\n"))
	require.Error(t, err)

	_, err = config.LoadMultiConfig(writeFile(t, "multi.yml", "sources: []\n"))
	require.Error(t, err)
}

func TestDefaultConfigFile(t *testing.T) {
	assert.Equal(t, "/etc/prometheus-exporters/multi.yml", config.DefaultConfigFile("multi"))
}
