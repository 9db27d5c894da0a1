// Package thumbnail defines the batched pixel-selection circuit: for every
// n×n source block, the pixel at a fixed in-block position equals the public
// thumbnail pixel of that block.
package thumbnail

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/frontend"

	"github.com/eon-protocol/thumbnark/circuits/hasher"
)

var (
	ErrAssignmentMissing = errors.New("assignment missing")
	ErrShape             = errors.New("invalid circuit shape")
)

// Mode selects whether a Circuit carries witness values.
type Mode uint8

const (
	// StructureOnly circuits are placeholders for compilation.
	StructureOnly Mode = iota
	// WithWitness circuits accept value binding and produce full witnesses.
	WithWitness
)

func (m Mode) String() string {
	switch m {
	case StructureOnly:
		return "structure-only"
	case WithWitness:
		return "with-witness"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Shape is the immutable configuration of a batched circuit.
type Shape struct {
	Ratio      int  // n, block side in source pixels
	Position   int  // p, 0 <= p < n*n
	Blocks     int  // number of instances
	BindSource bool // constrain a public Poseidon2 digest of every source pixel
}

func (s Shape) Capacity() int {
	return s.Ratio * s.Ratio
}

func (s Shape) Validate() error {
	if s.Ratio < 1 {
		return fmt.Errorf("%w: ratio %d < 1", ErrShape, s.Ratio)
	}
	if s.Position < 0 || s.Position >= s.Capacity() {
		return fmt.Errorf("%w: position %d outside [0, %d)", ErrShape, s.Position, s.Capacity())
	}
	if s.Blocks < 1 {
		return fmt.Errorf("%w: no blocks", ErrShape)
	}
	return nil
}

// NbPublic is the number of public variables: ones, outputs and the optional digest.
func (s Shape) NbPublic() int {
	n := 2 * s.Blocks
	if s.BindSource {
		n++
	}
	return n
}

// Block is one instance of the selection relation.
type Block struct {
	One    frontend.Variable
	Pixels []frontend.Variable
	Out    frontend.Variable
}

// Define emits Pixels[position] * One == Out, with One pinned to 1.
func (b *Block) Define(api frontend.API, position int) error {
	if position < 0 || position >= len(b.Pixels) {
		return fmt.Errorf("%w: position %d outside block of %d pixels", ErrShape, position, len(b.Pixels))
	}
	api.AssertIsEqual(b.One, 1)
	api.AssertIsEqual(api.Mul(b.Pixels[position], b.One), b.Out)
	return nil
}

// Circuit stacks Shape.Blocks instances of Block. Public variables are laid
// out group by group: every One, then every Out, then the optional Digest.
type Circuit struct {
	One    []frontend.Variable   `gnark:",public"`
	Out    []frontend.Variable   `gnark:",public"`
	Digest []frontend.Variable   `gnark:",public"`
	Pixels [][]frontend.Variable `gnark:",secret"`

	Shape Shape `gnark:"-"`
	Mode  Mode  `gnark:"-"`
}

// New allocates a circuit of the given shape. Both modes go through the same
// allocation so their variable layout is identical.
func New(shape Shape, mode Mode) (*Circuit, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	c := &Circuit{
		One:    make([]frontend.Variable, shape.Blocks),
		Out:    make([]frontend.Variable, shape.Blocks),
		Pixels: make([][]frontend.Variable, shape.Blocks),
		Shape:  shape,
		Mode:   mode,
	}
	if shape.BindSource {
		c.Digest = make([]frontend.Variable, 1)
	} else {
		c.Digest = []frontend.Variable{}
	}
	for i := range c.Pixels {
		c.Pixels[i] = make([]frontend.Variable, shape.Capacity())
	}
	return c, nil
}

// Block returns a view on instance i.
func (c *Circuit) Block(i int) Block {
	return Block{One: c.One[i], Pixels: c.Pixels[i], Out: c.Out[i]}
}

func value(e *fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// Bind assigns the encoded pixels of instance index and its output.
func (c *Circuit) Bind(index int, pixels []fr.Element, out fr.Element) error {
	if c.Mode != WithWitness {
		return fmt.Errorf("%w: cannot bind values on a %s circuit", ErrAssignmentMissing, c.Mode)
	}
	if index < 0 || index >= c.Shape.Blocks {
		return fmt.Errorf("%w: instance %d outside [0, %d)", ErrShape, index, c.Shape.Blocks)
	}
	if len(pixels) != c.Shape.Capacity() {
		return fmt.Errorf("%w: instance %d has %d pixels, want %d", ErrShape, index, len(pixels), c.Shape.Capacity())
	}
	one := fr.One()
	c.One[index] = value(&one)
	for k := range pixels {
		c.Pixels[index][k] = value(&pixels[k])
	}
	c.Out[index] = value(&out)
	return nil
}

// BindDigest assigns the source digest when the shape binds the source.
func (c *Circuit) BindDigest(digest fr.Element) error {
	if c.Mode != WithWitness {
		return fmt.Errorf("%w: cannot bind values on a %s circuit", ErrAssignmentMissing, c.Mode)
	}
	if !c.Shape.BindSource {
		return fmt.Errorf("%w: shape does not bind the source", ErrShape)
	}
	c.Digest[0] = value(&digest)
	return nil
}

// CheckAssigned reports the first unbound slot of a witness circuit.
func (c *Circuit) CheckAssigned() error {
	if c.Mode != WithWitness {
		return fmt.Errorf("%w: %s circuit has no witness", ErrAssignmentMissing, c.Mode)
	}
	for i := 0; i < c.Shape.Blocks; i++ {
		if c.One[i] == nil || c.Out[i] == nil {
			return fmt.Errorf("%w: instance %d public values", ErrAssignmentMissing, i)
		}
		for k, v := range c.Pixels[i] {
			if v == nil {
				return fmt.Errorf("%w: instance %d pixel %d", ErrAssignmentMissing, i, k)
			}
		}
	}
	for _, v := range c.Digest {
		if v == nil {
			return fmt.Errorf("%w: source digest", ErrAssignmentMissing)
		}
	}
	return nil
}

func (c *Circuit) Define(api frontend.API) error {
	for i := 0; i < c.Shape.Blocks; i++ {
		blk := c.Block(i)
		if err := blk.Define(api, c.Shape.Position); err != nil {
			return fmt.Errorf("instance %d: %w", i, err)
		}
	}
	if !c.Shape.BindSource {
		return nil
	}
	vals := make([]frontend.Variable, 0, c.Shape.Blocks*c.Shape.Capacity())
	for i := range c.Pixels {
		vals = append(vals, c.Pixels[i]...)
	}
	api.AssertIsEqual(hasher.NewPermutation(api).Sum(vals...), c.Digest[0])
	return nil
}
