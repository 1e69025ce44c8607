package composite

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"io"

	"github.com/digitorus/pdfplace/images"
)

// addImage embeds img as an image XObject and returns its object number.
// Opaque JPEG data is passed through with /DCTDecode; everything else is
// written as 8-bit RGB with an optional DeviceGray soft mask.
func (context *Context) addImage(img *images.Image) (uint32, error) {
	srcImg, err := img.Pixels()
	if err != nil {
		return 0, err
	}

	bounds := srcImg.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var rgbBuf, alphaBuf bytes.Buffer
	var rgbWriter, alphaWriter io.Writer = &rgbBuf, &alphaBuf
	var zlibRgb, zlibAlpha *zlib.Writer
	useCompression := context.CompressLevel != zlib.NoCompression

	if useCompression {
		if zlibRgb, err = zlib.NewWriterLevel(&rgbBuf, context.CompressLevel); err != nil {
			return 0, err
		}
		if zlibAlpha, err = zlib.NewWriterLevel(&alphaBuf, context.CompressLevel); err != nil {
			return 0, err
		}
		rgbWriter, alphaWriter = zlibRgb, zlibAlpha
	}

	hasAlpha := false
	row := make([]byte, 0, width*3)
	alphaRow := make([]byte, 0, width)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row, alphaRow = row[:0], alphaRow[:0]
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := srcImg.At(x, y).RGBA()
			a8 := uint8(a >> 8)
			if a8 < 255 {
				hasAlpha = true
			}
			// Un-premultiply so that transparent areas keep their colour.
			if a != 0 && a != 0xffff {
				r, g, b = r*0xffff/a, g*0xffff/a, b*0xffff/a
			}
			row = append(row, uint8(r>>8), uint8(g>>8), uint8(b>>8))
			alphaRow = append(alphaRow, a8)
		}
		if _, err := rgbWriter.Write(row); err != nil {
			return 0, err
		}
		if _, err := alphaWriter.Write(alphaRow); err != nil {
			return 0, err
		}
	}

	if useCompression {
		if err := zlibRgb.Close(); err != nil {
			return 0, err
		}
		if err := zlibAlpha.Close(); err != nil {
			return 0, err
		}
	}

	var smaskID uint32
	if hasAlpha {
		var smask bytes.Buffer
		fmt.Fprintf(&smask, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 %s/Length %d >>\nstream\n",
			width, height, ifElse(useCompression, "/Filter /FlateDecode ", ""), alphaBuf.Len())
		smask.Write(alphaBuf.Bytes())
		smask.WriteString("\nendstream")
		if smaskID, err = context.addObject(smask.Bytes()); err != nil {
			return 0, fmt.Errorf("failed to add soft mask: %w", err)
		}
	}

	var objBuf bytes.Buffer
	objBuf.WriteString("<< /Type /XObject /Subtype /Image\n")
	fmt.Fprintf(&objBuf, "  /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8\n", width, height)
	if smaskID != 0 {
		fmt.Fprintf(&objBuf, "  /SMask %d 0 R\n", smaskID)
	}

	if img.Format == "jpeg" && !hasAlpha && isRGBJPEG(srcImg) {
		fmt.Fprintf(&objBuf, "  /Filter /DCTDecode /Length %d >>\nstream\n", len(img.Data))
		objBuf.Write(img.Data)
	} else {
		fmt.Fprintf(&objBuf, "  %s/Length %d >>\nstream\n", ifElse(useCompression, "/Filter /FlateDecode ", ""), rgbBuf.Len())
		objBuf.Write(rgbBuf.Bytes())
	}
	objBuf.WriteString("\nendstream")

	return context.addObject(objBuf.Bytes())
}

// isRGBJPEG reports whether decoded JPEG data matches /DeviceRGB. Grayscale
// and CMYK JPEGs are re-encoded instead.
func isRGBJPEG(img image.Image) bool {
	_, ok := img.(*image.YCbCr)
	return ok
}

func ifElse(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
