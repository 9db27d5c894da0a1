package thumbnail

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"

	"github.com/eon-protocol/thumbnark/circuits/hasher"
)

func blockPixels(index, capacity int) []fr.Element {
	px := make([]fr.Element, capacity)
	for k := range px {
		px[k].SetUint64(uint64(0x10203000 + index*capacity + k))
	}
	return px
}

// honest binds every instance with its pixel at position as output.
func honest(t *testing.T, shape Shape) *Circuit {
	c, err := New(shape, WithWitness)
	if err != nil {
		t.Fatal(err)
	}
	var digest hasher.Digest
	for i := 0; i < shape.Blocks; i++ {
		px := blockPixels(i, shape.Capacity())
		if err := c.Bind(i, px, px[shape.Position]); err != nil {
			t.Fatal(err)
		}
		digest.Write(px...)
	}
	if shape.BindSource {
		if err := c.BindDigest(digest.Sum()); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func placeholder(t *testing.T, shape Shape) *Circuit {
	c, err := New(shape, StructureOnly)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCircuit_Honest(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 10, Position: 5, Blocks: 4}
	assert.NoError(test.IsSolved(placeholder(t, shape), honest(t, shape), ecc.BLS12_381.ScalarField()))
}

func TestCircuit_RatioOne(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 1, Position: 0, Blocks: 9}
	assert.NoError(test.IsSolved(placeholder(t, shape), honest(t, shape), ecc.BLS12_381.ScalarField()))
}

func TestCircuit_TamperedOutput(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 3, Position: 4, Blocks: 4}
	c := honest(t, shape)
	c.Out[2] = 7
	assert.Error(test.IsSolved(placeholder(t, shape), c, ecc.BLS12_381.ScalarField()))
}

func TestCircuit_WrongPosition(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 3, Position: 4, Blocks: 4}
	c := honest(t, shape)
	// outputs were selected at position 4; checking them against position 1 must fail
	other := shape
	other.Position = 1
	c.Shape = other
	assert.Error(test.IsSolved(placeholder(t, other), c, ecc.BLS12_381.ScalarField()))
}

func TestCircuit_OneIsPinned(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 2, Position: 0, Blocks: 2}
	c := honest(t, shape)
	// 2 * px == 2 * out would hold; One must still be 1
	for i := 0; i < shape.Blocks; i++ {
		px := blockPixels(i, shape.Capacity())
		var double fr.Element
		double.Double(&px[0])
		c.One[i] = 2
		c.Out[i] = value(&double)
	}
	assert.Error(test.IsSolved(placeholder(t, shape), c, ecc.BLS12_381.ScalarField()))
}

func TestCircuit_SourceDigest(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 2, Position: 3, Blocks: 2, BindSource: true}
	c := honest(t, shape)
	assert.NoError(test.IsSolved(placeholder(t, shape), c, ecc.BLS12_381.ScalarField()))

	// a pixel outside the selected position changes the digest only
	c.Pixels[1][0] = 42
	assert.Error(test.IsSolved(placeholder(t, shape), c, ecc.BLS12_381.ScalarField()))
}

func TestCircuit_Plonk(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 2, Position: 1, Blocks: 3}
	assert.CheckCircuit(placeholder(t, shape),
		test.WithValidAssignment(honest(t, shape)),
		test.WithCurves(ecc.BLS12_381),
		test.WithBackends(backend.PLONK),
		test.WithCompileOpts(frontend.IgnoreUnconstrainedInputs()),
	)
}

func TestCircuit_Bind(t *testing.T) {
	assert := test.NewAssert(t)
	shape := Shape{Ratio: 2, Position: 1, Blocks: 2}

	s := placeholder(t, shape)
	assert.ErrorIs(s.Bind(0, blockPixels(0, 4), fr.One()), ErrAssignmentMissing)
	assert.ErrorIs(s.CheckAssigned(), ErrAssignmentMissing)

	w, err := New(shape, WithWitness)
	assert.NoError(err)
	assert.ErrorIs(w.Bind(2, blockPixels(0, 4), fr.One()), ErrShape)
	assert.ErrorIs(w.Bind(0, blockPixels(0, 3), fr.One()), ErrShape)
	assert.ErrorIs(w.BindDigest(fr.One()), ErrShape)
	assert.NoError(w.Bind(0, blockPixels(0, 4), fr.One()))
	assert.ErrorIs(w.CheckAssigned(), ErrAssignmentMissing)
	assert.NoError(w.Bind(1, blockPixels(1, 4), fr.One()))
	assert.NoError(w.CheckAssigned())
}

func TestShape_Validate(t *testing.T) {
	assert := test.NewAssert(t)
	assert.ErrorIs(Shape{Ratio: 0, Blocks: 1}.Validate(), ErrShape)
	assert.ErrorIs(Shape{Ratio: 3, Position: 9, Blocks: 1}.Validate(), ErrShape)
	assert.ErrorIs(Shape{Ratio: 3, Position: -1, Blocks: 1}.Validate(), ErrShape)
	assert.ErrorIs(Shape{Ratio: 3, Position: 8, Blocks: 0}.Validate(), ErrShape)
	assert.NoError(Shape{Ratio: 3, Position: 8, Blocks: 1}.Validate())
	assert.Equal(8, Shape{Ratio: 2, Blocks: 4}.NbPublic())
	assert.Equal(9, Shape{Ratio: 2, Blocks: 4, BindSource: true}.NbPublic())
}
