package noise

import (
	"math"

	perlin "github.com/aquilax/go-perlin"
)

// Sampler is a deterministic coherent noise source.
type Sampler interface {
	Sample2D(x, y float64) float64
	Sample3D(x, y, z float64) float64
}

// Params configures the underlying Perlin generator.
type Params struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	N     int32   `yaml:"n"`
}

// DefaultParams yields a single plain Perlin octave per call; callers
// compose octaves themselves through Fractal2D.
func DefaultParams() Params {
	return Params{Alpha: 2, Beta: 2, N: 1}
}

// Field is a seeded Perlin noise field.
type Field struct {
	p    *perlin.Perlin
	seed int64
}

func New(seed int64, params Params) *Field {
	if params.N <= 0 {
		params = DefaultParams()
	}
	return &Field{
		p:    perlin.NewPerlin(params.Alpha, params.Beta, params.N, seed),
		seed: seed,
	}
}

func (f *Field) Seed() int64 { return f.seed }

func (f *Field) Sample2D(x, y float64) float64 { return f.p.Noise2D(x, y) }

func (f *Field) Sample3D(x, y, z float64) float64 { return f.p.Noise3D(x, y, z) }

// Fractal2D sums octaves of s at (x*sx*2^o, y*sy*2^o) weighted by 2^-o.
// bias is added once per octave, not once per call.
func Fractal2D(s Sampler, x, y, sx, sy float64, octaves int, bias float64) float64 {
	var sum float64
	for o := 0; o < octaves; o++ {
		m := math.Ldexp(1, o)
		sum += s.Sample2D(x*sx*m, y*sy*m)*math.Ldexp(1, -o) + bias
	}
	return sum
}

// Scaled3D samples s at a per-axis frequency.
func Scaled3D(s Sampler, x, y, z, sx, sy, sz float64) float64 {
	return s.Sample3D(x*sx, y*sy, z*sz)
}
