package imageproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"

	"ticket2ics/internal/config"
)

// Processor normalizes uploaded ticket images before recognition:
// EXIF orientation is applied and discarded, dimensions are bounded,
// and the result is re-encoded as baseline JPEG. The transform is
// deterministic for a given input and configuration.
type Processor struct {
	cfg    config.ImageConfig
	logger *zap.Logger
}

func NewProcessor(cfg config.ImageConfig, logger *zap.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger}
}

// Process decodes raw image bytes and returns the normalized JPEG.
// It fails only when the bytes are not a decodable image.
func (p *Processor) Process(raw []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if p.cfg.AutoRotate {
		src = applyOrientation(src, readOrientation(raw))
	}

	bounds := src.Bounds()
	if p.cfg.Resize && (bounds.Dx() > p.cfg.MaxWidth || bounds.Dy() > p.cfg.MaxHeight) {
		src = imaging.Fit(src, p.cfg.MaxWidth, p.cfg.MaxHeight, imaging.Lanczos)
		p.logger.Debug("Image downscaled",
			zap.Int("width", src.Bounds().Dx()),
			zap.Int("height", src.Bounds().Dy()),
		)
	}

	if p.cfg.Denoise {
		src = imaging.Blur(src, 0.8)
	}

	// Re-encoding drops EXIF and forces a 3-channel colour model.
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, src, imaging.JPEG, imaging.JPEGQuality(p.cfg.Quality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// readOrientation extracts the EXIF orientation tag, defaulting to 1
// (upright) when the image carries no usable metadata.
func readOrientation(raw []byte) int {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}
	return orientation
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
