package thumbnark

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRejected(t *testing.T) {
	require.True(t, rejected(errors.New("algebraic relation does not hold")))
	require.True(t, rejected(fmt.Errorf("batch: %w", kzg.ErrVerifyOpeningProof)))
	require.True(t, rejected(fmt.Errorf("fold: %w", kzg.ErrVerifyBatchOpeningSinglePoint)))
	require.False(t, rejected(errors.New("create backend configuration: boom")))
	require.False(t, rejected(errors.New("witness length is invalid")))
}

func TestVk_VerifyLogsRejection(t *testing.T) {
	c := testConfig(t, 10, 5)
	d := proveOnly(t, c, sourceImage(20, 20))
	thumb, err := LoadThumbnail(c.Output)
	require.NoError(t, err)
	publics, err := d.Assembler().PublicInputs(thumb, fr.Element{})
	require.NoError(t, err)
	publics[1][0].Add(&publics[1][0], new(fr.Element).SetOne())

	prev := logger.Logger()
	t.Cleanup(func() { logger.Set(prev) })
	var buf bytes.Buffer
	logger.Set(zerolog.New(&buf))

	ok, err := d.Vk().Verify(d.Proof(), publics)
	require.NoError(t, err)
	require.False(t, ok)
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), "proof rejected")
}

func TestVk_SaveLoad(t *testing.T) {
	c := testConfig(t, 10, 5)
	d := proveOnly(t, c, sourceImage(20, 20))
	path := filepath.Join(t.TempDir(), "thumbnail.vk")
	require.NoError(t, SaveVk(path, d.Vk()))
	vk, err := LoadVk(path)
	require.NoError(t, err)
	require.Equal(t, d.Vk().Fingerprint(), vk.Fingerprint())

	_, err = LoadVk(filepath.Join(t.TempDir(), "missing.vk"))
	require.ErrorIs(t, err, ErrIO)
}

func TestVk_FingerprintCoversG2(t *testing.T) {
	c := testConfig(t, 10, 5)
	d := proveOnly(t, c, sourceImage(20, 20))
	vk := *d.Vk()
	vk.KZG.G2[1] = vk.KZG.G2[0]
	require.NotEqual(t, d.Vk().Fingerprint(), vk.Fingerprint())
}
