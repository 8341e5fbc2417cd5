package imageformat

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	ico "github.com/sergeymakinen/go-ico"
)

var errBadICO = errors.New("malformed icon file")

// decodeICOConfig reports the dimensions of the largest image in an icon file.
//
// An icon file is a small directory (a 6-byte header, then one 16-byte entry
// per image) followed by the images themselves, each a BMP or, since Vista, a
// whole PNG. The directory's width and height are single bytes where 0 means
// 256, so a 512px PNG entry still claims 256. That is why every entry is
// decoded here and its real bounds compared, rather than trusting the
// directory: the PNG's own header is what counts.
func decodeICOConfig(data []byte) (image.Config, error) {
	images, err := ico.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %w", errBadICO, err)
	}

	var best image.Config
	for _, img := range images {
		b := img.Bounds()
		if b.Dx()*b.Dy() > best.Width*best.Height {
			best = image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}
		}
	}
	if best.Width == 0 {
		return image.Config{}, fmt.Errorf("%w: no images", errBadICO)
	}
	return best, nil
}
