package thumbnark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_RejectsHiding(t *testing.T) {
	_, err := Setup(8, true, SeedRNG("x"))
	require.ErrorIs(t, err, ErrSetup)
}

func TestSetup_SeededIsDeterministic(t *testing.T) {
	a, err := Setup(8, false, SeedRNG("same"))
	require.NoError(t, err)
	b, err := Setup(8, false, SeedRNG("same"))
	require.NoError(t, err)
	c, err := Setup(8, false, SeedRNG("other"))
	require.NoError(t, err)

	require.Equal(t, 8, a.Size())
	require.True(t, a.SRS.Pk.G1[1].Equal(&b.SRS.Pk.G1[1]))
	require.False(t, a.SRS.Pk.G1[1].Equal(&c.SRS.Pk.G1[1]))
	require.NotEqual(t, SeedTag("same"), SeedTag("other"))
}

func TestSRSCache_RoundTrip(t *testing.T) {
	cache := SRSCache{Dir: filepath.Join(t.TempDir(), "srs")}
	params, err := Setup(16, false, SeedRNG("cache"))
	require.NoError(t, err)

	_, err = cache.Load("tag", 16)
	require.Error(t, err)

	require.NoError(t, cache.Store("tag", params))
	got, err := cache.Load("tag", 16)
	require.NoError(t, err)
	require.Equal(t, params.SRS.Pk.G1, got.SRS.Pk.G1)
	require.True(t, params.SRS.Vk.G1.Equal(&got.SRS.Vk.G1))
	require.True(t, params.SRS.Vk.G2[1].Equal(&got.SRS.Vk.G2[1]))
	require.Equal(t, params.SRS.Vk.Lines, got.SRS.Vk.Lines)
}

func TestSRSCache_Corrupt(t *testing.T) {
	cache := SRSCache{Dir: t.TempDir()}
	params, err := Setup(4, false, SeedRNG("corrupt"))
	require.NoError(t, err)
	require.NoError(t, cache.Store("tag", params))

	bin, _ := cache.paths("tag", 4)
	b, err := os.ReadFile(bin)
	require.NoError(t, err)
	b[len(b)-1] ^= 1
	require.NoError(t, os.WriteFile(bin, b, 0o644))

	_, err = cache.Load("tag", 4)
	require.ErrorContains(t, err, "checksum")
}
