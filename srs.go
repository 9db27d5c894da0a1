package thumbnark

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"os"
	"path/filepath"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"golang.org/x/crypto/sha3"
)

// Params are the public parameters of a KZG trusted setup.
type Params struct {
	SRS *kzg.SRS
}

func (me *Params) Size() int {
	return len(me.SRS.Pk.G1)
}

// SeedRNG returns the randomness stream of a run: a ChaCha8 stream keyed by
// SHAKE-256(seed), or crypto/rand when seed is empty.
func SeedRNG(seed string) io.Reader {
	if seed == "" {
		return rand.Reader
	}
	var key [32]byte
	shake := sha3.NewShake256()
	shake.Write([]byte(seed))
	shake.Read(key[:])
	return mrand.NewChaCha8(key)
}

// SeedTag names cache entries derived from seed.
func SeedTag(seed string) string {
	var tag [8]byte
	sha3.ShakeSum256(tag[:], []byte(seed))
	return hex.EncodeToString(tag[:])
}

// Setup samples a KZG SRS supporting polynomials of size points.
func Setup(size uint64, hiding bool, rng io.Reader) (*Params, error) {
	if hiding {
		return nil, fail(ErrSetup, nil, "hiding commitments are not supported, PLONK blinds witness polynomials itself")
	}
	if size < 2 {
		size = 2
	}
	var buf [2 * fr.Bytes]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return nil, fail(ErrSetup, err, "sample toxic waste")
	}
	tau := new(big.Int).SetBytes(buf[:])
	tau.Mod(tau, fr.Modulus())
	if tau.Sign() == 0 {
		return nil, fail(ErrSetup, nil, "sampled zero toxic waste")
	}
	srs, err := kzg.NewSRS(size, tau)
	if err != nil {
		return nil, fail(ErrSetup, err, "new srs")
	}
	return &Params{SRS: srs}, nil
}

// SetupSize is the number of SRS points ccs needs, never below the degree
// bound of geom.
func SetupSize(ccs constraint.ConstraintSystem, geom Geometry) uint64 {
	sizeCanonical, _ := plonk.SRSSize(ccs)
	size := uint64(sizeCanonical)
	if deg := geom.Degree(); size < deg {
		size = deg
	}
	return size
}

// Trim derives the proving and verifying keys of ccs from params.
func Trim(params *Params, ccs constraint.ConstraintSystem) (*Pk, *Vk, error) {
	sizeCanonical, sizeLagrange := plonk.SRSSize(ccs)
	if params.Size() < sizeCanonical {
		return nil, nil, fail(ErrSetup, nil, fmt.Sprintf("degree overflow: circuit needs %d points, setup has %d", sizeCanonical, params.Size()))
	}
	lagrange, err := kzg.ToLagrangeG1(params.SRS.Pk.G1[:sizeLagrange])
	if err != nil {
		return nil, nil, fail(ErrSetup, err, "lagrange srs")
	}
	srs := kzg.SRS{Pk: kzg.ProvingKey{G1: params.SRS.Pk.G1[:sizeCanonical]}, Vk: params.SRS.Vk}
	srsLagrange := kzg.SRS{Pk: kzg.ProvingKey{G1: lagrange}, Vk: params.SRS.Vk}
	ipk, ivk, err := plonk.Setup(ccs, &srs, &srsLagrange)
	if err != nil {
		return nil, nil, fail(ErrSetup, err, "plonk setup")
	}
	var pk Pk
	if err := pk.FromGnarkConstraintSystemAndProvingKey(ccs, ipk, srs.Pk, srsLagrange.Pk); err != nil {
		return nil, nil, fail(ErrSetup, err, "proving key")
	}
	var vk Vk
	if err := vk.FromGnarkVerifyingKey(ivk); err != nil {
		return nil, nil, fail(ErrSetup, err, "verifying key")
	}
	return &pk, &vk, nil
}

// ParsePoints reads size points stored as big-endian Montgomery limbs.
func ParsePoints(b []byte, size int) (val []bls12381.G1Affine, err error) {
	var g1 bls12381.G1Affine
	buf := make([]byte, 8)
	reader := bytes.NewReader(b)
	val = make([]bls12381.G1Affine, 0, size)
	for n := 0; n < size; n++ {
		for i := range g1.X {
			if _, err = io.ReadFull(reader, buf); err != nil {
				return
			}
			g1.X[i] = binary.BigEndian.Uint64(buf)
		}
		for i := range g1.Y {
			if _, err = io.ReadFull(reader, buf); err != nil {
				return
			}
			g1.Y[i] = binary.BigEndian.Uint64(buf)
		}
		val = append(val, g1)
	}
	return
}

func writePoints(w io.Writer, points []bls12381.G1Affine) error {
	for _, xy := range points {
		for _, v := range xy.X {
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		}
		for _, v := range xy.Y {
			if err := binary.Write(w, binary.BigEndian, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SRSCache stores setups on disk as SRS.<tag>.<size>.BIN next to a sha256 sum.
type SRSCache struct {
	Dir string
}

func (me SRSCache) paths(tag string, size uint64) (string, string) {
	base := filepath.Join(me.Dir, fmt.Sprintf("SRS.%s.%d", tag, size))
	return base + ".BIN", base + ".SUM"
}

// Load returns the cached setup, or an error if it is absent or corrupt.
func (me SRSCache) Load(tag string, size uint64) (*Params, error) {
	pathbin, pathsum := me.paths(tag, size)
	bytebin, err := os.ReadFile(pathbin)
	if err != nil {
		return nil, err
	}
	bytesum, err := os.ReadFile(pathsum)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(bytebin)
	if hex.EncodeToString(sum[:]) != string(bytes.TrimSpace(bytesum)) {
		return nil, fmt.Errorf("checksum mismatch for %s", pathbin)
	}
	reader := bytes.NewReader(bytebin)
	var srs kzg.SRS
	dec := bls12381.NewDecoder(reader)
	if err := dec.Decode(&srs.Vk.G1); err != nil {
		return nil, err
	}
	if err := dec.Decode(&srs.Vk.G2[0]); err != nil {
		return nil, err
	}
	if err := dec.Decode(&srs.Vk.G2[1]); err != nil {
		return nil, err
	}
	srs.Vk.Lines[0] = bls12381.PrecomputeLines(srs.Vk.G2[0])
	srs.Vk.Lines[1] = bls12381.PrecomputeLines(srs.Vk.G2[1])
	rest, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if srs.Pk.G1, err = ParsePoints(rest, int(size)); err != nil {
		return nil, err
	}
	return &Params{SRS: &srs}, nil
}

// Store writes params under tag.
func (me SRSCache) Store(tag string, params *Params) error {
	if err := os.MkdirAll(me.Dir, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := bls12381.NewEncoder(&buf)
	if err := enc.Encode(&params.SRS.Vk.G1); err != nil {
		return err
	}
	if err := enc.Encode(&params.SRS.Vk.G2[0]); err != nil {
		return err
	}
	if err := enc.Encode(&params.SRS.Vk.G2[1]); err != nil {
		return err
	}
	if err := writePoints(&buf, params.SRS.Pk.G1); err != nil {
		return err
	}
	pathbin, pathsum := me.paths(tag, uint64(params.Size()))
	sum := sha256.Sum256(buf.Bytes())
	if err := os.WriteFile(pathbin, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.WriteFile(pathsum, []byte(hex.EncodeToString(sum[:])), 0o644)
}
