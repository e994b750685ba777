package loaders

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/animate/engine/resources"
)

type TextureLoader struct{}

func (tl *TextureLoader) Load(path, name string) (*resources.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return &resources.Resource{
		Name:     name,
		FullPath: path,
		Type:     resources.ResourceTypeImage,
		DataSize: uint64(info.Size()),
		Data:     img,
	}, nil
}

func (tl *TextureLoader) Unload(r *resources.Resource) error {
	r.Data = nil
	return nil
}
