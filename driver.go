package thumbnark

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/eon-protocol/thumbnark/circuits/thumbnail"
)

type Stage uint8

const (
	Initial Stage = iota
	Loaded
	SetupDone
	ProverStatementBuilt
	Proved
	VerifierStatementBuilt
	Verified
)

func (s Stage) String() string {
	switch s {
	case Initial:
		return "initial"
	case Loaded:
		return "loaded"
	case SetupDone:
		return "setup-done"
	case ProverStatementBuilt:
		return "prover-statement-built"
	case Proved:
		return "proved"
	case VerifierStatementBuilt:
		return "verifier-statement-built"
	case Verified:
		return "verified"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Report summarizes a run. Verified is the verifier's answer, not a status.
type Report struct {
	Geometry    Geometry
	Blocks      int
	Constraints int
	SetupSize   int
	Setup       time.Duration
	Prove       time.Duration
	Verify      time.Duration
	Verified    bool
}

type Option func(*Driver)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithRNG overrides the setup randomness derived from Config.Seed.
func WithRNG(r io.Reader) Option {
	return func(d *Driver) { d.rng = r }
}

// WithProgress is called once per encoded block.
func WithProgress(f func()) Option {
	return func(d *Driver) { d.onBlock = f }
}

// Driver runs one source image through setup, proving and verification.
// Stages must be called in order and each only once; the first error is
// sticky.
type Driver struct {
	config  Config
	log     zerolog.Logger
	rng     io.Reader
	onBlock func()

	stage Stage
	err   error

	img      image.Image
	geom     Geometry
	asm      *Assembler
	pk       *Pk
	vk       *Vk
	witness  *Witness
	proof    *Proof
	publics  fr.Vector
	verifier *thumbnail.Circuit
	report   Report
}

func NewDriver(config Config, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		config: config,
		log:    logger.Logger().With().Str("component", "driver").Logger(),
		rng:    SeedRNG(config.Seed),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Driver) Stage() Stage { return d.stage }

func (d *Driver) Geometry() Geometry { return d.geom }

func (d *Driver) Assembler() *Assembler { return d.asm }

func (d *Driver) Vk() *Vk { return d.vk }

func (d *Driver) Proof() *Proof { return d.proof }

func (d *Driver) Report() Report { return d.report }

// VerifierStatement is the structure-only circuit, nil before
// VerifierStatementBuilt.
func (d *Driver) VerifierStatement() *thumbnail.Circuit { return d.verifier }

// Witness is the prover's statement, nil before ProverStatementBuilt.
func (d *Driver) Witness() *Witness { return d.witness }

// Certificate bundles the proof of a Proved run.
func (d *Driver) Certificate() (*Certificate, error) {
	if d.stage < Proved {
		return nil, fmt.Errorf("%w: no proof at stage %s", ErrStage, d.stage)
	}
	publics, err := d.asm.PublicInputs(d.witness.Thumbnail, d.witness.Digest)
	if err != nil {
		return nil, err
	}
	return NewCertificate(d.config, d.geom, d.vk, d.proof, publics)
}

func (d *Driver) enter(from, to Stage) error {
	if d.err != nil {
		return d.err
	}
	if d.stage != from {
		return fmt.Errorf("%w: %s requires %s, driver is at %s", ErrStage, to, from, d.stage)
	}
	return nil
}

func (d *Driver) done(to Stage, err error) error {
	if err != nil {
		d.err = err
		d.log.Error().Err(err).Stringer("stage", to).Msg("aborted")
		return err
	}
	d.stage = to
	return nil
}

// Load decodes Config.Source.
func (d *Driver) Load() error {
	if err := d.enter(Initial, Loaded); err != nil {
		return err
	}
	file, err := os.Open(d.config.Source)
	if err != nil {
		return d.done(Loaded, fail(ErrImageDecode, err, "open source"))
	}
	defer file.Close()
	img, format, err := image.Decode(file)
	if err != nil {
		return d.done(Loaded, fail(ErrImageDecode, err, "decode "+d.config.Source))
	}
	d.log.Debug().Str("format", format).Str("source", d.config.Source).Msg("decoded")
	return d.done(Loaded, d.load(img))
}

// LoadImage uses an already decoded source.
func (d *Driver) LoadImage(img image.Image) error {
	if err := d.enter(Initial, Loaded); err != nil {
		return err
	}
	return d.done(Loaded, d.load(img))
}

func (d *Driver) load(img image.Image) error {
	b := img.Bounds()
	geom, err := NewGeometry(b.Dx(), b.Dy(), d.config.Ratio, d.config.Truncate)
	if err != nil {
		return err
	}
	if geom.Truncated() {
		d.log.Warn().
			Int("width", geom.Width).Int("height", geom.Height).
			Int("dropped_cols", geom.Width-geom.Cols*geom.Ratio).
			Int("dropped_rows", geom.Height-geom.Rows*geom.Ratio).
			Msg("truncating source")
	}
	asm, err := NewAssembler(d.config, geom)
	if err != nil {
		return err
	}
	asm.OnBlock = d.onBlock
	d.img = img
	d.geom = geom
	d.asm = asm
	d.report.Geometry = geom
	d.report.Blocks = geom.Blocks()
	d.log.Info().Int("cols", geom.Cols).Int("rows", geom.Rows).Int("blocks", geom.Blocks()).Msg("loaded")
	return nil
}

// Setup compiles the statement and derives its keys.
func (d *Driver) Setup() error {
	if err := d.enter(Loaded, SetupDone); err != nil {
		return err
	}
	return d.done(SetupDone, d.setup())
}

func (d *Driver) setup() error {
	start := time.Now()
	ccs, err := Compile(d.asm.Verifier())
	if err != nil {
		return err
	}
	size := SetupSize(ccs, d.geom)
	d.log.Debug().Int("constraints", ccs.GetNbConstraints()).Uint64("degree", d.geom.Degree()).Uint64("size", size).Msg("compiled")

	params, err := d.params(size)
	if err != nil {
		return err
	}
	pk, vk, err := Trim(params, ccs)
	if err != nil {
		return err
	}
	d.pk, d.vk = pk, vk
	d.report.Constraints = ccs.GetNbConstraints()
	d.report.SetupSize = params.Size()
	d.report.Setup = time.Since(start)
	d.log.Info().Dur("took", d.report.Setup).Int("constraints", d.report.Constraints).Msg("setup")
	return nil
}

// params samples a setup, going through the cache when the run is seeded.
func (d *Driver) params(size uint64) (*Params, error) {
	if d.config.CacheDir == "" || d.config.Seed == "" {
		return Setup(size, false, d.rng)
	}
	cache := SRSCache{Dir: d.config.CacheDir}
	tag := SeedTag(d.config.Seed)
	if params, err := cache.Load(tag, size); err == nil {
		d.log.Debug().Str("tag", tag).Uint64("size", size).Msg("srs cache hit")
		return params, nil
	}
	params, err := Setup(size, false, d.rng)
	if err != nil {
		return nil, err
	}
	if err := cache.Store(tag, params); err != nil {
		d.log.Warn().Err(err).Msg("srs cache store")
	}
	return params, nil
}

// BuildProverStatement encodes the source and fills the thumbnail buffer.
func (d *Driver) BuildProverStatement() error {
	if err := d.enter(SetupDone, ProverStatementBuilt); err != nil {
		return err
	}
	w, err := d.asm.Prover(d.img)
	if err != nil {
		return d.done(ProverStatementBuilt, err)
	}
	d.witness = w
	return d.done(ProverStatementBuilt, nil)
}

// Prove generates the proof and persists the thumbnail, plus the certificate
// when one is configured.
func (d *Driver) Prove() error {
	if err := d.enter(ProverStatementBuilt, Proved); err != nil {
		return err
	}
	return d.done(Proved, d.prove())
}

func (d *Driver) prove() error {
	start := time.Now()
	proof, publics, err := d.pk.Prove(d.witness.Circuit)
	if err != nil {
		return err
	}
	d.report.Prove = time.Since(start)
	d.proof, d.publics = proof, publics
	d.log.Info().Dur("took", d.report.Prove).Msg("prove")

	expected, err := d.asm.PublicInputs(d.witness.Thumbnail, d.witness.Digest)
	if err != nil {
		return err
	}
	flat := expected.Flatten()
	if len(flat) != len(publics) {
		return fail(ErrProofGeneration, nil, fmt.Sprintf("%d public values, thumbnail implies %d", len(publics), len(flat)))
	}
	for i := range flat {
		if !flat[i].Equal(&publics[i]) {
			return fail(ErrProofGeneration, nil, fmt.Sprintf("public value %d does not match the thumbnail", i))
		}
	}

	if err := SaveThumbnail(d.config.Output, d.witness.Thumbnail); err != nil {
		return err
	}
	if d.config.Certificate == "" {
		return nil
	}
	cert, err := NewCertificate(d.config, d.geom, d.vk, d.proof, expected)
	if err != nil {
		return err
	}
	return SaveCertificate(d.config.Certificate, cert)
}

// BuildVerifierStatement rebuilds the statement from the geometry alone.
func (d *Driver) BuildVerifierStatement() error {
	if err := d.enter(Proved, VerifierStatementBuilt); err != nil {
		return err
	}
	v := d.asm.Verifier()
	if nb := v.Shape.NbPublic(); nb != int(d.vk.NP) {
		return d.done(VerifierStatementBuilt, fail(ErrVerification, nil, fmt.Sprintf("statement has %d public inputs, verifying key %d", nb, d.vk.NP)))
	}
	d.verifier = v
	return d.done(VerifierStatementBuilt, nil)
}

// Verify re-reads the persisted thumbnail and checks the proof against it.
// A rejected proof is reported through the result, not as an error.
func (d *Driver) Verify() (bool, error) {
	if err := d.enter(VerifierStatementBuilt, Verified); err != nil {
		return false, err
	}
	ok, err := d.verify()
	if err := d.done(Verified, err); err != nil {
		return false, err
	}
	return ok, nil
}

func (d *Driver) verify() (bool, error) {
	start := time.Now()
	thumb, err := LoadThumbnail(d.config.Output)
	if err != nil {
		return false, err
	}
	publics, err := d.asm.PublicInputs(thumb, d.witness.Digest)
	if err != nil {
		return false, err
	}
	if nb, want := len(publics.Flatten()), d.verifier.Shape.NbPublic(); nb != want {
		return false, fail(ErrVerification, nil, fmt.Sprintf("%d public inputs, verifier statement has %d", nb, want))
	}
	ok, err := d.vk.Verify(d.proof, publics)
	if err != nil {
		return false, err
	}
	d.report.Verify = time.Since(start)
	d.report.Verified = ok
	d.log.Info().Dur("took", d.report.Verify).Bool("verified", ok).Msg("verify")
	return ok, nil
}

// Run executes every remaining stage from Initial.
func (d *Driver) Run() (Report, error) {
	steps := []func() error{d.Load, d.Setup, d.BuildProverStatement, d.Prove, d.BuildVerifierStatement}
	for _, step := range steps {
		if err := step(); err != nil {
			return d.report, err
		}
	}
	if _, err := d.Verify(); err != nil {
		return d.report, err
	}
	return d.report, nil
}

func SaveThumbnail(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fail(ErrIO, err, "create thumbnail")
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fail(ErrIO, err, "encode thumbnail")
	}
	if err := file.Close(); err != nil {
		return fail(ErrIO, err, "close thumbnail")
	}
	return nil
}

func LoadThumbnail(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fail(ErrIO, err, "open thumbnail")
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fail(ErrImageDecode, err, "decode thumbnail")
	}
	return img, nil
}
