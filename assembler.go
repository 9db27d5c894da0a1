package thumbnark

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/thumbnark/circuits/thumbnail"
)

// PublicInputs groups the public variables by role: ones, outputs and, when
// the source is bound, its digest.
type PublicInputs [][]fr.Element

func (me PublicInputs) Flatten() fr.Vector {
	n := 0
	for _, g := range me {
		n += len(g)
	}
	vec := make(fr.Vector, 0, n)
	for _, g := range me {
		vec = append(vec, g...)
	}
	return vec
}

// Assembler builds the batched statements of one geometry.
type Assembler struct {
	config Config
	geom   Geometry
	shape  thumbnail.Shape

	// OnBlock, when set, is called once per encoded block, possibly concurrently.
	OnBlock func()
}

func NewAssembler(config Config, geom Geometry) (*Assembler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if geom.Ratio != config.Ratio {
		return nil, fmt.Errorf("%w: geometry ratio %d differs from configured %d", ErrConfig, geom.Ratio, config.Ratio)
	}
	shape := config.Shape(geom.Blocks())
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return &Assembler{config: config, geom: geom, shape: shape}, nil
}

func (me *Assembler) Shape() thumbnail.Shape {
	return me.shape
}

// Verifier returns the structure-only statement.
func (me *Assembler) Verifier() *thumbnail.Circuit {
	c, err := thumbnail.New(me.shape, thumbnail.StructureOnly)
	if err != nil {
		// shape was validated by NewAssembler
		panic(err)
	}
	return c
}

// Witness is the prover's side of one run.
type Witness struct {
	Circuit   *thumbnail.Circuit
	Thumbnail draw.Image
	Pixels    [][]fr.Element // encoded source pixels, by instance
	Digest    fr.Element     // zero unless the source is bound
}

// Prover encodes every block of img, binds the prover statement and writes
// the selected pixel of each block into the thumbnail buffer.
func (me *Assembler) Prover(img image.Image) (*Witness, error) {
	b := img.Bounds()
	if b.Dx() < me.geom.Cols*me.geom.Ratio || b.Dy() < me.geom.Rows*me.geom.Ratio {
		return nil, fmt.Errorf("%w: %dx%d image does not cover the %dx%d block grid", ErrGeometry, b.Dx(), b.Dy(), me.geom.Cols, me.geom.Rows)
	}
	circuit, err := thumbnail.New(me.shape, thumbnail.WithWitness)
	if err != nil {
		return nil, err
	}
	w := &Witness{
		Circuit:   circuit,
		Thumbnail: me.config.Format.NewImage(me.geom.Cols, me.geom.Rows),
		Pixels:    make([][]fr.Element, me.geom.Blocks()),
	}

	g, _ := errgroup.WithContext(context.Background())
	if me.config.Workers > 0 {
		g.SetLimit(me.config.Workers)
	}
	for bx := 0; bx < me.geom.Cols; bx++ {
		for by := 0; by < me.geom.Rows; by++ {
			g.Go(func() error {
				px, err := me.encodeBlock(img, bx, by)
				if err != nil {
					return err
				}
				w.Pixels[me.geom.Index(bx, by)] = px
				if me.OnBlock != nil {
					me.OnBlock()
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// binding and thumbnail writes stay sequential in instance order
	p := me.config.Position
	for bx := 0; bx < me.geom.Cols; bx++ {
		for by := 0; by < me.geom.Rows; by++ {
			i := me.geom.Index(bx, by)
			if err := circuit.Bind(i, w.Pixels[i], w.Pixels[i][p]); err != nil {
				return nil, err
			}
			x, y := me.geom.Source(bx, by, p)
			w.Thumbnail.Set(bx, by, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	if me.shape.BindSource {
		w.Digest = SourceDigest(w.Pixels)
		if err := circuit.BindDigest(w.Digest); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (me *Assembler) encodeBlock(img image.Image, bx, by int) ([]fr.Element, error) {
	b := img.Bounds()
	px := make([]fr.Element, me.shape.Capacity())
	for k := range px {
		x, y := me.geom.Source(bx, by, k)
		e, err := EncodeColor(img.At(b.Min.X+x, b.Min.Y+y), me.config.Format)
		if err != nil {
			return nil, fmt.Errorf("block (%d, %d) pixel %d: %w", bx, by, k, err)
		}
		px[k] = e
	}
	return px, nil
}

// PublicInputs re-encodes thumb in instance order. digest is only used when
// the source is bound.
func (me *Assembler) PublicInputs(thumb image.Image, digest fr.Element) (PublicInputs, error) {
	b := thumb.Bounds()
	if b.Dx() != me.geom.Cols || b.Dy() != me.geom.Rows {
		return nil, fmt.Errorf("%w: thumbnail is %dx%d, want %dx%d", ErrGeometry, b.Dx(), b.Dy(), me.geom.Cols, me.geom.Rows)
	}
	ones := make([]fr.Element, me.geom.Blocks())
	outs := make([]fr.Element, me.geom.Blocks())
	for bx := 0; bx < me.geom.Cols; bx++ {
		for by := 0; by < me.geom.Rows; by++ {
			i := me.geom.Index(bx, by)
			e, err := EncodeColor(thumb.At(b.Min.X+bx, b.Min.Y+by), me.config.Format)
			if err != nil {
				return nil, err
			}
			ones[i].SetOne()
			outs[i] = e
		}
	}
	publics := PublicInputs{ones, outs}
	if me.shape.BindSource {
		publics = append(publics, []fr.Element{digest})
	}
	return publics, nil
}
