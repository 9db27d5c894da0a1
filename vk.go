package thumbnark

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math/bits"
	"os"
	"strings"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/kzg"
	"github.com/consensys/gnark/backend/plonk"
	plonkbls12381 "github.com/consensys/gnark/backend/plonk/bls12-381"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/logger"

	"github.com/eon-protocol/thumbnark/circuits/hasher"
)

// 2-adicity of the BLS12-381 scalar field
const MAX_SZ = 32

// Vk is the verifying key of one thumbnail circuit shape.
type Vk struct {
	S1, S2, S3, QL, QR, QM, QO, QK bls12381.G1Affine
	KZG                            kzg.VerifyingKey
	NP                             uint32 // public variables
	SZ                             uint8  // log2 of the domain size
}

func (me *Vk) ToGnarkVerifyingKey() plonk.VerifyingKey {
	size := uint64(1) << me.SZ
	var sizeinv fr.Element
	sizeinv.SetUint64(size).Inverse(&sizeinv)
	generator, err := fr.Generator(size)
	if err != nil {
		log.Fatalln(err)
	}
	return &plonkbls12381.VerifyingKey{
		Size:                        size,
		SizeInv:                     sizeinv,
		Generator:                   generator,
		NbPublicVariables:           uint64(me.NP),
		Kzg:                         me.KZG,
		CosetShift:                  COSET_SHIFT,
		S:                           [3]bls12381.G1Affine{me.S1, me.S2, me.S3},
		Ql:                          me.QL,
		Qr:                          me.QR,
		Qm:                          me.QM,
		Qo:                          me.QO,
		Qk:                          me.QK,
		Qcp:                         []bls12381.G1Affine{},
		CommitmentConstraintIndexes: []uint64{},
	}
}

func (me *Vk) FromGnarkVerifyingKey(vk plonk.VerifyingKey) error {
	cvk, ok := vk.(*plonkbls12381.VerifyingKey)
	if !ok {
		return fmt.Errorf("unexpected verifying key type %T", vk)
	}
	if bits.OnesCount64(cvk.Size) != 1 {
		return errors.New("vk.size should be power of 2")
	}
	if sz := bits.TrailingZeros64(cvk.Size); sz > MAX_SZ {
		return fmt.Errorf("domain of size 2^%d exceeds the field's 2-adicity", sz)
	}
	if cvk.CosetShift != COSET_SHIFT {
		return errors.New("invalid coset shift")
	}
	if len(cvk.Qcp) != 0 || len(cvk.CommitmentConstraintIndexes) != 0 {
		return errors.New("circuit has commitments")
	}
	if cvk.NbPublicVariables > 1<<32-1 {
		return fmt.Errorf("too many public variables: %d", cvk.NbPublicVariables)
	}
	me.SZ = uint8(bits.TrailingZeros64(cvk.Size))
	me.NP = uint32(cvk.NbPublicVariables)
	me.KZG = cvk.Kzg
	me.S1 = cvk.S[0]
	me.S2 = cvk.S[1]
	me.S3 = cvk.S[2]
	me.QL = cvk.Ql
	me.QR = cvk.Qr
	me.QM = cvk.Qm
	me.QO = cvk.Qo
	me.QK = cvk.Qk
	return nil
}

// Verify checks proof against publics. A proof that does not verify is
// (false, nil); malformed inputs and backend failures are ErrVerification.
func (me *Vk) Verify(proof *Proof, publics PublicInputs) (bool, error) {
	lg := logger.Logger().With().Str("stage", "verify").Logger()
	vec := publics.Flatten()
	if len(vec) != int(me.NP) {
		return false, fail(ErrVerification, nil, fmt.Sprintf("%d public inputs, verifying key expects %d", len(vec), me.NP))
	}
	for _, v := range proof.points() {
		if !v.IsInSubGroup() {
			lg.Warn().Msg("proof point not in subgroup")
			return false, nil
		}
	}
	pw, err := witness.New(FIELD)
	if err != nil {
		return false, fail(ErrVerification, err, "new witness")
	}
	values := make(chan any, len(vec))
	for _, v := range vec {
		values <- v
	}
	close(values)
	if err := pw.Fill(len(vec), 0, values); err != nil {
		return false, fail(ErrVerification, err, "fill public witness")
	}
	if err := plonk.Verify(proof.ToGnarkProof(), me.ToGnarkVerifyingKey(), pw); err != nil {
		if !rejected(err) {
			return false, fail(ErrVerification, err, "plonk verify")
		}
		lg.Warn().Err(err).Msg("proof rejected")
		return false, nil
	}
	return true, nil
}

// messages of the unexported plonk verifier errors that mean "invalid proof"
var rejections = []string{
	"algebraic relation does not hold",
	"point is not on the curve",
}

// rejected reports whether err from plonk.Verify is a failed check rather
// than a failure to compute one.
func rejected(err error) bool {
	if errors.Is(err, kzg.ErrVerifyOpeningProof) || errors.Is(err, kzg.ErrVerifyBatchOpeningSinglePoint) {
		return true
	}
	for _, msg := range rejections {
		if strings.Contains(err.Error(), msg) {
			return true
		}
	}
	return false
}

// Fingerprint identifies the circuit shape and setup this key verifies.
func (me *Vk) Fingerprint() fr.Element {
	return hasher.Sum(
		CID_VK,
		HashG1(me.S1), HashG1(me.S2), HashG1(me.S3),
		HashG1(me.QL), HashG1(me.QR), HashG1(me.QM), HashG1(me.QO), HashG1(me.QK),
		HashG1(me.KZG.G1), HashG2(me.KZG.G2[0]), HashG2(me.KZG.G2[1]),
		fr.NewElement(uint64(me.NP)), fr.NewElement(uint64(me.SZ)),
	)
}

func (me *Vk) points() []*bls12381.G1Affine {
	return []*bls12381.G1Affine{&me.S1, &me.S2, &me.S3, &me.QL, &me.QR, &me.QM, &me.QO, &me.QK, &me.KZG.G1}
}

func (me *Vk) WriteTo(w io.Writer) (int64, error) {
	enc := bls12381.NewEncoder(w)
	for _, p := range me.points() {
		if err := enc.Encode(p); err != nil {
			return enc.BytesWritten(), err
		}
	}
	if err := enc.Encode(&me.KZG.G2[0]); err != nil {
		return enc.BytesWritten(), err
	}
	if err := enc.Encode(&me.KZG.G2[1]); err != nil {
		return enc.BytesWritten(), err
	}
	buf := [5]byte{}
	binary.BigEndian.PutUint32(buf[:4], me.NP)
	buf[4] = me.SZ
	n, err := w.Write(buf[:])
	return int64(n) + enc.BytesWritten(), err
}

func (me *Vk) ReadFrom(r io.Reader) (int64, error) {
	dec := bls12381.NewDecoder(r)
	for _, p := range me.points() {
		if err := dec.Decode(p); err != nil {
			return dec.BytesRead(), err
		}
	}
	if err := dec.Decode(&me.KZG.G2[0]); err != nil {
		return dec.BytesRead(), err
	}
	if err := dec.Decode(&me.KZG.G2[1]); err != nil {
		return dec.BytesRead(), err
	}
	me.KZG.Lines[0] = bls12381.PrecomputeLines(me.KZG.G2[0])
	me.KZG.Lines[1] = bls12381.PrecomputeLines(me.KZG.G2[1])
	buf := [5]byte{}
	if n, err := io.ReadFull(r, buf[:]); err != nil {
		return int64(n) + dec.BytesRead(), err
	}
	me.NP = binary.BigEndian.Uint32(buf[:4])
	me.SZ = buf[4]
	if me.SZ > MAX_SZ {
		return dec.BytesRead() + 5, fmt.Errorf("domain of size 2^%d exceeds the field's 2-adicity", me.SZ)
	}
	return dec.BytesRead() + 5, nil
}

// SaveVk writes the verifying key handed to verifiers out of band.
func SaveVk(path string, vk *Vk) error {
	file, err := os.Create(path)
	if err != nil {
		return fail(ErrIO, err, "create verifying key")
	}
	if _, err := vk.WriteTo(file); err != nil {
		file.Close()
		return fail(ErrIO, err, "write verifying key")
	}
	if err := file.Close(); err != nil {
		return fail(ErrIO, err, "close verifying key")
	}
	return nil
}

func LoadVk(path string) (*Vk, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fail(ErrIO, err, "open verifying key")
	}
	defer file.Close()
	var vk Vk
	if _, err := vk.ReadFrom(bufio.NewReader(file)); err != nil {
		return nil, fail(ErrVerification, err, "decode verifying key")
	}
	return &vk, nil
}
