package export

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/starford/lumina/internal/apperr"
)

func encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case FormatPNG:
		level := png.DefaultCompression
		if quality >= 100 {
			level = png.BestCompression
		}
		enc := png.Encoder{CompressionLevel: level}
		return enc.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: max(1, min(quality, 100))})
	}
}

// encodeToTemp streams the encoded image into a new file under dir and
// returns its path. The caller removes the file.
func encodeToTemp(dir string, img image.Image, f Format, quality int) (string, error) {
	tmp, err := os.CreateTemp(dir, "lumina-export-*."+string(f))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := encode(bw, img, f, quality); err != nil {
		_ = tmp.Close()
		return name, fmt.Errorf("encode %s: %v: %w", f, err, apperr.ErrEncode)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return name, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return name, fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}
