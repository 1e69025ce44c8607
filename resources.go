package pdfplace

import (
	"sort"

	"github.com/digitorus/pdfplace/images"
)

// AddImage registers an image with the document.
// If an image with the same name already exists, the existing image is
// returned. Identical data registered under another name is shared as well.
func (d *Document) AddImage(name string, data []byte) (*Image, error) {
	// Return existing image if already registered
	if existing, ok := d.images[name]; ok {
		return existing, nil
	}

	img, err := images.Decode(name, data)
	if err != nil {
		return nil, err
	}

	// Deduplicate by content
	for _, existing := range d.images {
		if existing.Hash == img.Hash {
			d.images[name] = existing
			return existing, nil
		}
	}

	d.images[name] = img
	return img, nil
}

// AddImageDataURL registers an image given as a data URL, as exported by
// browser signature pads.
func (d *Document) AddImageDataURL(name, dataURL string) (*Image, error) {
	data, _, err := images.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return d.AddImage(name, data)
}

// Image returns a registered image by name.
func (d *Document) Image(name string) *Image {
	return d.images[name]
}

// Images returns all registered images in the document, ordered by name.
func (d *Document) Images() []*Image {
	names := make([]string, 0, len(d.images))
	for name := range d.images {
		names = append(names, name)
	}
	sort.Strings(names)

	images := make([]*Image, 0, len(names))
	seen := make(map[*Image]bool)
	for _, name := range names {
		img := d.images[name]
		if !seen[img] {
			seen[img] = true
			images = append(images, img)
		}
	}
	return images
}
