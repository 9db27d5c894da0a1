package thumbnark

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/stretchr/testify/require"
)

func TestKeys_SerializationRoundTrip(t *testing.T) {
	c := testConfig(t, 10, 5)
	d := proveOnly(t, c, sourceImage(20, 20))

	var buf bytes.Buffer
	n, err := d.Vk().WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	var vk Vk
	_, err = vk.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, d.Vk().Fingerprint(), vk.Fingerprint())
	require.Equal(t, d.Vk().KZG.Lines, vk.KZG.Lines)

	buf.Reset()
	_, err = d.Proof().WriteTo(&buf)
	require.NoError(t, err)
	var proof Proof
	_, err = proof.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, *d.Proof(), proof)

	thumb, err := LoadThumbnail(c.Output)
	require.NoError(t, err)
	publics, err := d.Assembler().PublicInputs(thumb, d.Witness().Digest)
	require.NoError(t, err)
	ok, err := vk.Verify(&proof, publics)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCertificate_RoundTrip(t *testing.T) {
	c := testConfig(t, 2, 2)
	c.Certificate = filepath.Join(t.TempDir(), "thumbnail.cert")
	c.BindSource = true
	d, report := run(t, c, sourceImage(6, 4))
	require.True(t, report.Verified)

	cert, err := LoadCertificate(c.Certificate)
	require.NoError(t, err)
	require.EqualValues(t, CERT_VERSION, cert.Version)
	require.EqualValues(t, 3, cert.Cols)
	require.EqualValues(t, 2, cert.Rows)

	b1, err := cert.MarshalBinary()
	require.NoError(t, err)
	var again Certificate
	require.NoError(t, again.UnmarshalBinary(b1))
	b2, err := again.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	trusted, err := cert.Trusted(d.Vk().Fingerprint())
	require.NoError(t, err)

	thumb, err := LoadThumbnail(c.Output)
	require.NoError(t, err)
	ok, err := cert.Verify(thumb, trusted)
	require.NoError(t, err)
	require.True(t, ok)

	tampered := image.NewNRGBA(thumb.Bounds())
	draw.Draw(tampered, tampered.Bounds(), thumb, image.Point{}, draw.Src)
	px := tampered.NRGBAAt(2, 1)
	px.B++
	tampered.SetNRGBA(2, 1, px)
	ok, err = cert.Verify(tampered, trusted)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = cert.Verify(image.NewNRGBA(image.Rect(0, 0, 2, 2)), trusted)
	require.ErrorIs(t, err, ErrGeometry)
}

func TestCertificate_FromDriver(t *testing.T) {
	c := testConfig(t, 10, 5)
	d, err := NewDriver(c)
	require.NoError(t, err)
	_, err = d.Certificate()
	require.ErrorIs(t, err, ErrStage)

	d = proveOnly(t, c, sourceImage(20, 20))
	cert, err := d.Certificate()
	require.NoError(t, err)
	thumb, err := LoadThumbnail(c.Output)
	require.NoError(t, err)
	ok, err := cert.Verify(thumb, d.Vk())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = cert.Verify(thumb, nil)
	require.ErrorIs(t, err, ErrVerification)
}

func TestCertificate_BadVersion(t *testing.T) {
	cert := Certificate{Version: CERT_VERSION + 1}
	b, err := cert.MarshalBinary()
	require.NoError(t, err)
	var got Certificate
	require.Error(t, got.UnmarshalBinary(b))
}

func TestCertificate_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thumbnail.cert")
	cert := &Certificate{
		Version:  CERT_VERSION,
		Ratio:    4,
		Position: 3,
		Format:   string(RGBA8),
		Cols:     2,
		Rows:     1,
		Vk:       []byte{1, 2, 3},
		Proof:    []byte{4, 5},
		ID:       []byte{6},
	}
	require.NoError(t, SaveCertificate(path, cert))
	got, err := LoadCertificate(path)
	require.NoError(t, err)
	require.Equal(t, cert, got)
}

// forgery binds its outputs to nothing.
type forgery struct {
	One []frontend.Variable `gnark:",public"`
	Out []frontend.Variable `gnark:",public"`
}

func (c *forgery) Define(api frontend.API) error {
	for _, one := range c.One {
		api.AssertIsEqual(one, 1)
	}
	return nil
}

// forge proves under its own keys that thumb was selected, whatever thumb is.
func forge(t *testing.T, c Config, geom Geometry, thumb image.Image) (*Certificate, *Vk) {
	blocks := geom.Blocks()
	ccs, err := frontend.Compile(FIELD, scs.NewBuilder, &forgery{
		One: make([]frontend.Variable, blocks),
		Out: make([]frontend.Variable, blocks),
	}, COMPILE_OPTS...)
	require.NoError(t, err)
	params, err := Setup(SetupSize(ccs, geom), false, SeedRNG("forgery"))
	require.NoError(t, err)
	pk, vk, err := Trim(params, ccs)
	require.NoError(t, err)

	asm, err := NewAssembler(c, geom)
	require.NoError(t, err)
	publics, err := asm.PublicInputs(thumb, fr.Element{})
	require.NoError(t, err)
	assignment := &forgery{
		One: make([]frontend.Variable, blocks),
		Out: make([]frontend.Variable, blocks),
	}
	for i := 0; i < blocks; i++ {
		assignment.One[i] = 1
		assignment.Out[i] = publics[1][i]
	}
	w, err := frontend.NewWitness(assignment, FIELD)
	require.NoError(t, err)
	gp, err := plonk.Prove(pk.ToGnarkConstraintSystem(), pk.ToGnarkProvingKey(), w)
	require.NoError(t, err)
	var proof Proof
	require.NoError(t, proof.FromGnarkProof(gp))

	cert, err := NewCertificate(c, geom, vk, &proof, publics)
	require.NoError(t, err)
	return cert, vk
}

func TestCertificate_ForeignKey(t *testing.T) {
	c := testConfig(t, 10, 5)
	d := proveOnly(t, c, sourceImage(20, 20))

	// a thumbnail no 20x20 source of this test could produce
	thumb := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	draw.Draw(thumb, thumb.Bounds(), &image.Uniform{C: color.NRGBA{R: 200, G: 1, B: 2, A: 255}}, image.Point{}, draw.Src)
	cert, forged := forge(t, c, d.Geometry(), thumb)

	// well formed under the key it carries
	ok, err := cert.Verify(thumb, forged)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cert.Verify(thumb, d.Vk())
	require.NoError(t, err)
	require.False(t, ok)

	_, err = cert.Trusted(d.Vk().Fingerprint())
	require.ErrorIs(t, err, ErrVerification)

	path := filepath.Join(t.TempDir(), "forged.cert")
	require.NoError(t, SaveCertificate(path, cert))
	loaded, err := LoadCertificate(path)
	require.NoError(t, err)
	ok, err = loaded.Verify(thumb, d.Vk())
	require.NoError(t, err)
	require.False(t, ok)
}
