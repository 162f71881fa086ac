package render

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"isovoxel/internal/sim/voxel"
	"isovoxel/internal/sim/world/visibility"
)

// FallbackColor marks voxels whose type has no registered texture.
var FallbackColor = color.RGBA{R: 255, G: 109, B: 194, A: 255}

// Handle is an opaque drawable owned by the Surface implementation.
type Handle any

// Surface receives draw calls. Positions are top-left corners in pixels.
type Surface interface {
	DrawTexture(h Handle, x, y, size float64)
	DrawRect(x, y, size float64, c color.RGBA)
}

// Registry maps voxel types to loaded textures.
type Registry map[voxel.Type]Handle

type Renderer struct {
	blockSize float64
	textures  Registry
}

func New(blockSize float64, textures Registry) *Renderer {
	if textures == nil {
		textures = Registry{}
	}
	return &Renderer{blockSize: blockSize, textures: textures}
}

type DrawStats struct {
	Textured int
	Fallback int
}

// Draw issues one tile per visible voxel at its screen position shifted by
// offset. The set is only read.
func (r *Renderer) Draw(s Surface, set *visibility.Set, offset mgl64.Vec3) DrawStats {
	var st DrawStats
	if set == nil {
		return st
	}
	for _, v := range set.Voxels {
		x := v.ScreenX + offset.X()
		y := v.ScreenY + offset.Y()
		if h, ok := r.textures[v.Type]; ok && h != nil {
			s.DrawTexture(h, x, y, r.blockSize)
			st.Textured++
			continue
		}
		s.DrawRect(x, y, r.blockSize, FallbackColor)
		st.Fallback++
	}
	return st
}
