package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	require.NoError(t, os.WriteFile(first, []byte("STOREFRONT_API_URL=https://api.first.test\n# comment\n"), 0600))
	require.NoError(t, os.WriteFile(second, []byte("STOREFRONT_API_URL=https://api.second.test\nSTOREFRONT_HOST=\"shop1.second.test\"\n"), 0600))

	c := NewConfig()
	require.NoError(t, c.LoadDotEnv(first, filepath.Join(dir, "missing.env"), "", second))

	assert.Equal(t, "https://api.first.test", c.DotEnv["STOREFRONT_API_URL"], "earlier files win")
	assert.Equal(t, "shop1.second.test", c.DotEnv["STOREFRONT_HOST"])

	_, set := os.LookupEnv("STOREFRONT_HOST")
	assert.False(t, set, "process environment is not modified")

	assert.Equal(t, "https://api.first.test", DefaultSchema().Resolve(c, KeyAPIURL))
}

func TestLookupEnv(t *testing.T) {
	c := NewConfig()
	c.DotEnv["STOREFRONT_TEST_LOOKUP"] = "from-file"

	v, ok := c.LookupEnv("STOREFRONT_TEST_LOOKUP")
	assert.True(t, ok)
	assert.Equal(t, "from-file", v)

	t.Setenv("STOREFRONT_TEST_LOOKUP", "")
	v, ok = c.LookupEnv("STOREFRONT_TEST_LOOKUP")
	assert.True(t, ok, "set-but-empty env var still wins")
	assert.Empty(t, v)

	_, ok = c.LookupEnv("STOREFRONT_TEST_UNSET_ANYWHERE")
	assert.False(t, ok)
}
