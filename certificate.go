package thumbnark

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/logger"
	"github.com/fxamacker/cbor/v2"

	"github.com/eon-protocol/thumbnark/circuits/hasher"
)

// Certificate bundles everything a verifier needs besides the thumbnail.
type Certificate struct {
	Version    uint8  `cbor:"1,keyasint"`
	Ratio      uint32 `cbor:"2,keyasint"`
	Position   uint32 `cbor:"3,keyasint"`
	Format     string `cbor:"4,keyasint"`
	Cols       uint32 `cbor:"5,keyasint"`
	Rows       uint32 `cbor:"6,keyasint"`
	BindSource bool   `cbor:"7,keyasint"`
	Digest     []byte `cbor:"8,keyasint,omitempty"`
	Vk         []byte `cbor:"9,keyasint"`
	Proof      []byte `cbor:"10,keyasint"`
	ID         []byte `cbor:"11,keyasint"`
}

var certEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// CertificateID commits to the verifying key and the public inputs.
func CertificateID(vk *Vk, publics PublicInputs) fr.Element {
	vals := append([]fr.Element{CID_CERT, vk.Fingerprint()}, publics.Flatten()...)
	return hasher.Sum(vals...)
}

func NewCertificate(config Config, geom Geometry, vk *Vk, proof *Proof, publics PublicInputs) (*Certificate, error) {
	var bvk, bproof bytes.Buffer
	if _, err := vk.WriteTo(&bvk); err != nil {
		return nil, fail(ErrIO, err, "encode verifying key")
	}
	if _, err := proof.WriteTo(&bproof); err != nil {
		return nil, fail(ErrIO, err, "encode proof")
	}
	id := CertificateID(vk, publics)
	cert := &Certificate{
		Version:    CERT_VERSION,
		Ratio:      uint32(config.Ratio),
		Position:   uint32(config.Position),
		Format:     string(config.Format),
		Cols:       uint32(geom.Cols),
		Rows:       uint32(geom.Rows),
		BindSource: config.BindSource,
		Vk:         bvk.Bytes(),
		Proof:      bproof.Bytes(),
		ID:         id.Marshal(),
	}
	if config.BindSource {
		if len(publics) != 3 || len(publics[2]) != 1 {
			return nil, fail(ErrConfig, nil, "source binding without a digest group")
		}
		cert.Digest = publics[2][0].Marshal()
	}
	return cert, nil
}

// certificate without the BinaryMarshaler methods, which cbor would call back into
type plainCertificate Certificate

func (c *Certificate) MarshalBinary() ([]byte, error) {
	return certEncMode.Marshal((*plainCertificate)(c))
}

func (c *Certificate) UnmarshalBinary(b []byte) error {
	if err := cbor.Unmarshal(b, (*plainCertificate)(c)); err != nil {
		return err
	}
	if c.Version != CERT_VERSION {
		return fmt.Errorf("certificate version %d, want %d", c.Version, CERT_VERSION)
	}
	return nil
}

func SaveCertificate(path string, c *Certificate) error {
	b, err := c.MarshalBinary()
	if err != nil {
		return fail(ErrIO, err, "encode certificate")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fail(ErrIO, err, "write certificate")
	}
	return nil
}

func LoadCertificate(path string) (*Certificate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fail(ErrIO, err, "read certificate")
	}
	var c Certificate
	if err := c.UnmarshalBinary(b); err != nil {
		return nil, fail(ErrVerification, err, "decode certificate")
	}
	return &c, nil
}

// Config is the configuration the certificate was proved under.
func (c *Certificate) Config() Config {
	config := DefaultConfig()
	config.Ratio = int(c.Ratio)
	config.Position = int(c.Position)
	config.Format = PixelFormat(c.Format)
	config.BindSource = c.BindSource
	return config
}

func (c *Certificate) Geometry() Geometry {
	n := int(c.Ratio)
	return Geometry{
		Width:  int(c.Cols) * n,
		Height: int(c.Rows) * n,
		Ratio:  n,
		Cols:   int(c.Cols),
		Rows:   int(c.Rows),
	}
}

// Keys decodes the embedded verifying key and proof.
func (c *Certificate) Keys() (*Vk, *Proof, error) {
	var vk Vk
	if _, err := vk.ReadFrom(bytes.NewReader(c.Vk)); err != nil {
		return nil, nil, fail(ErrVerification, err, "decode verifying key")
	}
	var proof Proof
	if _, err := proof.ReadFrom(bytes.NewReader(c.Proof)); err != nil {
		return nil, nil, fail(ErrVerification, err, "decode proof")
	}
	return &vk, &proof, nil
}

// Trusted returns the embedded verifying key if its fingerprint is fp.
func (c *Certificate) Trusted(fp fr.Element) (*Vk, error) {
	vk, _, err := c.Keys()
	if err != nil {
		return nil, err
	}
	if got := vk.Fingerprint(); !got.Equal(&fp) {
		return nil, fail(ErrVerification, nil, fmt.Sprintf("verifying key fingerprint %s is not the trusted %s", got.String(), fp.String()))
	}
	return vk, nil
}

// Verify checks the certificate against a thumbnail under a verifying key the
// caller trusts. A certificate carrying any other key is rejected.
func (c *Certificate) Verify(thumb image.Image, trusted *Vk) (bool, error) {
	if trusted == nil {
		return false, fail(ErrVerification, nil, "no trusted verifying key")
	}
	asm, err := NewAssembler(c.Config(), c.Geometry())
	if err != nil {
		return false, err
	}
	var digest fr.Element
	if c.BindSource {
		if len(c.Digest) != fr.Bytes {
			return false, fail(ErrVerification, nil, "missing source digest")
		}
		if err := digest.SetBytesCanonical(c.Digest); err != nil {
			return false, fail(ErrVerification, err, "source digest")
		}
	}
	publics, err := asm.PublicInputs(thumb, digest)
	if err != nil {
		return false, err
	}
	embedded, proof, err := c.Keys()
	if err != nil {
		return false, err
	}
	var want bytes.Buffer
	if _, err := trusted.WriteTo(&want); err != nil {
		return false, fail(ErrVerification, err, "encode trusted verifying key")
	}
	if !bytes.Equal(want.Bytes(), c.Vk) {
		fp := embedded.Fingerprint()
		lg := logger.Logger()
		lg.Warn().Str("stage", "certificate").Str("fingerprint", fp.String()).Msg("certificate carries an untrusted verifying key")
		return false, nil
	}
	if int(trusted.NP) != asm.Shape().NbPublic() {
		return false, fail(ErrVerification, nil, fmt.Sprintf("verifying key has %d public inputs, geometry implies %d", trusted.NP, asm.Shape().NbPublic()))
	}
	id := CertificateID(trusted, publics)
	if !bytes.Equal(id.Marshal(), c.ID) {
		return false, nil
	}
	return trusted.Verify(proof, publics)
}
