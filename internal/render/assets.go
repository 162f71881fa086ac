package render

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	_ "github.com/askeladdk/aseprite"

	"isovoxel/internal/sim/voxel"
)

const AssetExt = ".ase"

// MissingAssetError reports a texture that could not be loaded.
type MissingAssetError struct {
	Type voxel.Type
	Path string
	Err  error
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("texture for %s: %s: %v", e.Type, e.Path, e.Err)
}

func (e *MissingAssetError) Unwrap() error { return e.Err }

// AssetPath is the conventional texture location for t under dir.
func AssetPath(dir string, t voxel.Type) string {
	return filepath.Join(dir, t.String()+AssetExt)
}

// TexturedTypes lists the types that get a texture: every type except Air.
func TexturedTypes() []voxel.Type {
	all := voxel.All()
	out := make([]voxel.Type, 0, len(all))
	for _, t := range all {
		if t != voxel.Air {
			out = append(out, t)
		}
	}
	return out
}

// Loader turns a decoded image into a Surface-specific handle.
type Loader interface {
	Load(img image.Image) (Handle, error)
}

type LoaderFunc func(img image.Image) (Handle, error)

func (f LoaderFunc) Load(img image.Image) (Handle, error) { return f(img) }

// LoadTextures loads one texture per textured type. Any missing or
// undecodable file fails the whole load.
func LoadTextures(dir string, l Loader) (Registry, error) {
	reg := Registry{}
	for _, t := range TexturedTypes() {
		p := AssetPath(dir, t)
		img, err := DecodeImage(p)
		if err != nil {
			return nil, &MissingAssetError{Type: t, Path: p, Err: err}
		}
		h, err := l.Load(img)
		if err != nil {
			return nil, &MissingAssetError{Type: t, Path: p, Err: err}
		}
		reg[t] = h
	}
	return reg, nil
}

// DecodeImage decodes any registered image format, Aseprite included.
func DecodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

// IsNotExist reports whether err is a MissingAssetError for an absent file.
func IsNotExist(err error) bool {
	var m *MissingAssetError
	return errors.As(err, &m) && errors.Is(m.Err, fs.ErrNotExist)
}
