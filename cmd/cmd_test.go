package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muonblog/mycoserve/internal/config"
	"github.com/muonblog/mycoserve/internal/taxonomy"
	"github.com/muonblog/mycoserve/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testSource = "testdata/www/data/shroom_info.yaml"

func TestPrintTaxonomyYAML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printTaxonomy(&out, testSource, "yaml", false))

	var got taxonomy.Taxonomy
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))

	want, err := taxonomy.LoadFile(testSource, false)
	require.NoError(t, err)
	assert.Equal(t, *want, got)
	assert.Contains(t, out.String(), "label: agaricales")
}

func TestPrintTaxonomyJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printTaxonomy(&out, testSource, "json", false))

	var got taxonomy.Taxonomy
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "Boletes", got.Categories[1].Title)
	assert.Equal(t, taxonomy.NoCommonName, got.Categories[1].Genera[0].Species[0].CommonName)
}

func TestPrintTaxonomyCategoriesOnly(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printTaxonomy(&out, testSource, "json", true))

	var got taxonomy.Taxonomy
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got.Categories, 2)
	for _, c := range got.Categories {
		assert.Empty(t, c.Genera)
	}
}

func TestPrintTaxonomySummary(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printTaxonomy(&out, testSource, "summary", false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 categories, 3 genera, 3 species", lines[0])
	assert.Contains(t, lines[1], "/agaricales")
	assert.Contains(t, lines[1], "Gilled Mushrooms")
	assert.Contains(t, lines[1], "2 genera")
	assert.Contains(t, lines[2], "1 species")
}

func TestPrintTaxonomyMissingSource(t *testing.T) {
	err := printTaxonomy(io.Discard, filepath.Join(t.TempDir(), "nope.yaml"), "yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_TAXONOMY_READ")
}

func TestWriteVersion(t *testing.T) {
	info := &version.BuildInfo{
		Name:      version.Name,
		Version:   "v0.3.0",
		Commit:    "abcdef0123456",
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}

	var text bytes.Buffer
	require.NoError(t, writeVersion(&text, info, "text", false))
	assert.Contains(t, text.String(), "mycoserve v0.3.0")
	assert.Contains(t, text.String(), "Platform: linux/amd64")

	var short bytes.Buffer
	require.NoError(t, writeVersion(&short, info, "text", true))
	assert.Equal(t, "v0.3.0 (abcdef0)\n", short.String())

	var js bytes.Buffer
	require.NoError(t, writeVersion(&js, info, "json", false))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "v0.3.0", decoded["version"])
	assert.Equal(t, true, decoded["is_release"])

	assert.Error(t, writeVersion(io.Discard, info, "xml", false))
}

func TestEnumFlag(t *testing.T) {
	var format string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	EnumVarP(fs, &format, "format", "f", "yaml", []string{"yaml", "json"}, "Output format")

	assert.Equal(t, "yaml", format)
	require.NoError(t, fs.Parse([]string{"-f", "json"}))
	assert.Equal(t, "json", format)

	err := fs.Parse([]string{"--format", "toml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of: yaml, json")
	assert.Contains(t, fs.Lookup("format").Usage, "(yaml, json)")
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr bool
	}{
		{"port ok", ValidatePort, "7878", false},
		{"port zero", ValidatePort, "0", true},
		{"port too high", ValidatePort, "70000", true},
		{"port not a number", ValidatePort, "http", true},
		{"positive ok", ValidatePositive, "4", false},
		{"positive zero", ValidatePositive, "0", true},
		{"positive garbage", ValidatePositive, "many", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerFlagsBindToConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().SetOutput(io.Discard)
	flags := AddServerFlags(cmd)

	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--workers", "3"}))
	assert.Equal(t, 9090, flags.Port)
	assert.Equal(t, 3, flags.Workers)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Server.Workers)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	assert.Error(t, cmd.Flags().Parse([]string{"--port", "0"}))
	assert.Error(t, cmd.Flags().Parse([]string{"--workers", "0"}))
}

func TestEnvOverridesConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("MYCOSERVE_PATHS_ROOT", "/srv/www")
	t.Setenv("MYCOSERVE_SERVER_PORT", "8181")

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys()

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "/srv/www", cfg.Paths.Root)
	assert.Equal(t, filepath.Join("/srv/www", "data"), cfg.Paths.Data)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root, err := filepath.Abs("testdata/www")
	require.NoError(t, err)

	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Workers: 2},
		Domains: config.DomainsConfig{
			Site:         config.DefaultSiteDomain,
			Encyclopedia: config.DefaultMycoDomain,
		},
		Paths: config.PathsConfig{
			Root:   root,
			Data:   filepath.Join(root, "data"),
			Source: filepath.Join(root, "data", "shroom_info.yaml"),
			Images: filepath.Join(t.TempDir(), "no-images"),
		},
		Logging: config.LoggingConfig{
			File:   filepath.Join(t.TempDir(), "access.log"),
			Level:  "error",
			Format: "text",
			Buffer: 64,
		},
	}
}

func get(t *testing.T, addr, host, path string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, "GET "+path+" HTTP/1.1\r\nHost: "+host+"\r\nX-Forwarded-For: 192.0.2.10\r\n\r\n")
	require.NoError(t, err)
	body, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(body)
}

func TestAppServesBothHosts(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, io.Discard, io.Discard)
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.server.Serve(ctx, l) }()
	addr := l.Addr().String()

	home := get(t, addr, cfg.Domains.Site, "/")
	assert.True(t, strings.HasPrefix(home, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, home, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(home, "<h1>muonblog</h1>\n"))

	missing := get(t, addr, cfg.Domains.Site, "/nope.css")
	assert.True(t, strings.HasPrefix(missing, "HTTP/1.1 404 NOT FOUND\r\n"))
	assert.Contains(t, missing, "Not here")

	menu := get(t, addr, cfg.Domains.Encyclopedia, "/")
	assert.Contains(t, menu, `<a href="/boletales">Boletes</a>`)

	page := get(t, addr, cfg.Domains.Encyclopedia, "/agaricales")
	assert.Contains(t, page, "Agaricus bisporus - Button Mushroom")
	assert.Contains(t, page, "AgaricusAgaricus bisporus2.jpg", "unlisted image directories fall back to three images")

	unknown := get(t, addr, "example.com", "/")
	assert.True(t, strings.HasSuffix(unknown, "\r\n\r\n404 not found"))

	require.NoError(t, a.server.Shutdown(context.Background()))
	require.NoError(t, <-done)
	require.NoError(t, a.Close())

	unique, total, last := a.tally.Snapshot()
	assert.Equal(t, uint64(1), unique)
	assert.Equal(t, uint64(5), total)
	assert.Equal(t, "192.0.2.10", last.String())

	logged, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "START connection 1")
	assert.Contains(t, string(logged), "\t\tIP: 192.0.2.10")
	// Every later connection repeats the address and gets the short form.
	assert.Contains(t, string(logged), "[1/5]")
}
