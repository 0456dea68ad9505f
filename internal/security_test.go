// Package internal_test contains security tests for storefront.
package internal_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/storefront/internal/config"
	"github.com/joeycumines/storefront/internal/gateway"
	"github.com/joeycumines/storefront/internal/storage"
)

// ============================================================================
// Path Traversal Prevention Tests
// ============================================================================

func TestPathTraversalPrevention_StorageProfile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "state")
	for _, profile := range []string{"../escape", "a/../../b", "/etc/passwd", ".hidden", "nul\x00byte"} {
		t.Run(fmt.Sprintf("%q", profile), func(t *testing.T) {
			_, err := storage.Open("fs", storage.Options{Dir: dir, Profile: profile})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid storage profile")
		})
	}

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "state", e.Name(), "nothing is created beside the state directory")
	}
}

func TestPathTraversalPrevention_ConfigSymlink(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	secret := filepath.Join(tmpDir, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("api.url https://attacker.test\n"), 0o600))

	link := filepath.Join(tmpDir, "config")
	if err := os.Symlink(secret, link); err != nil {
		t.Skip("Symlinks not supported on this platform")
	}

	cfg, err := config.LoadFromPath(link)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "symlink not allowed")
}

// ============================================================================
// File Permission Tests
// ============================================================================

func TestFilePermissionHandling_StateFileIsPrivate(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	dir := t.TempDir()
	st, err := storage.NewFileSystemStore(dir, "perm-test")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Set(context.Background(), storage.KeyToken, "secret-token"))

	info, err := os.Stat(st.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "the token file is readable by its owner only")
}

func TestFilePermissionHandling_ConfigWriteIsPrivate(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions only")
	}

	path := filepath.Join(t.TempDir(), "nested", "config")
	require.NoError(t, config.EnsureDir(path))
	require.NoError(t, config.SetKeyInFile(path, config.KeyAPIURL, "https://api.shop.test"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

// ============================================================================
// Session Data Isolation Tests
// ============================================================================

func TestSessionDataIsolation_ProfilesDoNotShareTokens(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, backend := range []string{"memory", "fs"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			prefix := strings.ReplaceAll(t.Name(), "/", "-")
			one, err := storage.Open(backend, storage.Options{Dir: dir, Profile: prefix + "-one"})
			require.NoError(t, err)
			defer one.Close()
			two, err := storage.Open(backend, storage.Options{Dir: dir, Profile: prefix + "-two"})
			require.NoError(t, err)
			defer two.Close()

			require.NoError(t, one.Set(ctx, storage.KeyToken, "token-one"))
			_, ok, err := two.Get(ctx, storage.KeyToken)
			require.NoError(t, err)
			assert.False(t, ok, "a token leaked between profiles")
		})
	}
}

func TestSessionDataIsolation_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	const numProfiles = 10
	var wg sync.WaitGroup
	for i := range numProfiles {
		wg.Go(func() {
			profile := fmt.Sprintf("concurrent-%d", i)
			st, err := storage.Open("fs", storage.Options{Dir: dir, Profile: profile})
			if err != nil {
				t.Errorf("profile %d: %v", i, err)
				return
			}
			defer st.Close()
			want := "token-" + profile
			if err := st.Set(ctx, storage.KeyToken, want); err != nil {
				t.Errorf("profile %d: %v", i, err)
				return
			}
			got, _, err := st.Get(ctx, storage.KeyToken)
			if err != nil || got != want {
				t.Errorf("profile %d: got %q, %v", i, got, err)
			}
		})
	}
	wg.Wait()
}

// ============================================================================
// Output Sanitization Tests
// ============================================================================

func TestOutputSanitization_NoTokensInLogs(t *testing.T) {
	t.Parallel()

	const token = "super-secret-bearer-token"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(gateway.HeaderAuthorization) != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"phone":"+15550100"}`))
	}))
	defer srv.Close()
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	gw := gateway.New(gateway.Options{BaseURL: base, Logger: logger})

	var out map[string]any
	require.NoError(t, gw.Me(context.Background(), token, &out))
	require.Error(t, gw.Me(context.Background(), "wrong", &out))

	assert.Contains(t, logs.String(), "[Gateway]")
	assert.NotContains(t, logs.String(), token)
}

// ============================================================================
// Config Injection Prevention Tests
// ============================================================================

func TestConfigInjection_ValuesAreLiteral(t *testing.T) {
	t.Parallel()

	for _, val := range []string{
		"; rm -rf /",
		"$(whoami)",
		"`ls`",
		"| cat /etc/passwd",
		"https://api.test/#[products]",
	} {
		t.Run(val, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config")
			require.NoError(t, config.SetKeyInFile(path, config.KeyHost, val))

			cfg, err := config.LoadFromPath(path)
			require.NoError(t, err)
			got, ok := cfg.GetGlobalOption(config.KeyHost)
			require.True(t, ok)
			assert.Equal(t, val, got)
			assert.Empty(t, cfg.Commands, "a value cannot open a section")
		})
	}
}

func TestConfigInjection_PlaceholderAPIURLReported(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("api.url ${API_URL}\n"))
	require.NoError(t, err)
	issues := config.ValidateConfig(cfg, config.DefaultSchema())
	assert.NotEmpty(t, issues, "an unresolved template is reported")
}

// ============================================================================
// Resource Limit Tests
// ============================================================================

func TestResourceLimits_LongConfigValues(t *testing.T) {
	t.Parallel()

	veryLongValue := strings.Repeat("x", 32*1024)
	cfg, err := config.LoadFromReader(strings.NewReader("host " + veryLongValue + "\n"))
	require.NoError(t, err)
	got, _ := cfg.GetGlobalOption(config.KeyHost)
	assert.Len(t, got, len(veryLongValue))
}

func TestResourceLimits_OversizedResponseRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"`))
		chunk := bytes.Repeat([]byte("a"), 1<<20)
		for range 16 {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
		_, _ = w.Write([]byte(`"}`))
	}))
	defer srv.Close()
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	gw := gateway.New(gateway.Options{BaseURL: base})
	_, err = gw.Health(context.Background())
	require.Error(t, err, "a response beyond the size cap is not decoded")
}
