package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image '%s': %w", path, err)
	}

	// Normalize every source format to tightly packed RGBA.
	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		DataSize: uint64(len(rgba.Pix)),
		Data: &metadata.ImageResourceData{
			ChannelCount: 4,
			Width:        uint32(bounds.Dx()),
			Height:       uint32(bounds.Dy()),
			Pixels:       rgba.Pix,
		},
	}, nil
}

func (il *ImageLoader) Unload(*metadata.Resource) error {
	return nil
}
