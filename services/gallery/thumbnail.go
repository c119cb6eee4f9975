package gallery

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"eventpilot/services/faces"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	thumbnailSize    = 200
	thumbnailPadding = 0.2
	thumbnailQuality = 85
)

// cropRect widens the normalized face box by the padding on every side and
// clamps it to the image bounds.
func cropRect(bounds image.Rectangle, box faces.Box) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	left := int((box.Left - thumbnailPadding*box.Width) * w)
	top := int((box.Top - thumbnailPadding*box.Height) * h)
	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	width := int(box.Width * (1 + 2*thumbnailPadding) * w)
	height := int(box.Height * (1 + 2*thumbnailPadding) * h)
	if limit := bounds.Dx() - left; width > limit {
		width = limit
	}
	if limit := bounds.Dy() - top; height > limit {
		height = limit
	}

	origin := bounds.Min.Add(image.Pt(left, top))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(width, height))}
}

// cover trims r to a centered square so scaling fills the thumbnail
// without distortion.
func cover(r image.Rectangle) image.Rectangle {
	side := r.Dx()
	if r.Dy() < side {
		side = r.Dy()
	}
	x := r.Min.X + (r.Dx()-side)/2
	y := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}

// Thumbnail crops the face out of src and encodes a square JPEG.
func Thumbnail(src []byte, box faces.Box) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	region := cover(cropRect(img.Bounds(), box))
	if region.Empty() {
		return nil, fmt.Errorf("face box %+v is outside the image", box)
	}

	dst := image.NewRGBA(image.Rect(0, 0, thumbnailSize, thumbnailSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, region, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
