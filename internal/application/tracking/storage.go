package tracking

import "context"

// ImageStore is the durable holder of uploaded package images, addressed by
// the relative path stored in a package's packageImage field.
type ImageStore interface {
	// Save persists the uploaded bytes under a collision-free name derived
	// from the upload time and the original file name, and returns the path
	// clients later use as packageImage.
	Save(ctx context.Context, data []byte, originalName string) (string, error)

	// Delete removes a previously saved image. Deleting a path that no longer
	// exists is not an error; callers treat any failure as best-effort.
	Delete(ctx context.Context, path string) error

	// Managed reports whether the path is located under the managed store.
	// External URLs and the placeholder sentinel are never managed.
	Managed(path string) bool
}
