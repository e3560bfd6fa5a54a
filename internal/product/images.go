package product

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	MaxImages     = 5
	MaxImageBytes = 5 << 20 // 5 MiB per upload
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload describes one file of an incoming image batch, before any bytes
// leave the server.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
}

// ValidateBatch checks a whole image batch against a product that already
// has `existing` images. A failing batch is rejected as a unit: nothing is
// uploaded when any file is over size, of a non-image type, or when the
// batch would push the product past MaxImages.
func ValidateBatch(existing int, batch []Upload) error {
	if len(batch) == 0 {
		return fmt.Errorf("no images in upload")
	}
	if existing+len(batch) > MaxImages {
		return fmt.Errorf("cannot add %d images: product has %d of %d already", len(batch), existing, MaxImages)
	}
	for _, u := range batch {
		if _, ok := imageExt[u.ContentType]; !ok {
			return fmt.Errorf("%s: unsupported type %q, must be an image", u.Filename, u.ContentType)
		}
		if u.Size > MaxImageBytes {
			return fmt.Errorf("%s: file is larger than 5MB", u.Filename)
		}
	}
	return nil
}

// ImagePath derives the storage object path for the n-th new image of a
// product. The random suffix keeps re-uploads from colliding with deleted
// objects.
func ImagePath(productID string, n int, contentType string) string {
	return fmt.Sprintf("products/%s/%d-%s%s", productID, n, uuid.NewString(), imageExt[contentType])
}
