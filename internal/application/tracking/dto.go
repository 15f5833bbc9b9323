package tracking

// FileUpload carries the bytes of an uploaded image together with its
// original file name.
type FileUpload struct {
	Name string
	Data []byte
}

// SaveRequest is the request variant resolved once at the API boundary.
// Fields holds the decoded body fields (from a JSON body or multipart form
// values); File is set only when a multipart request carried an image.
type SaveRequest struct {
	Fields map[string]any
	File   *FileUpload
}

// ImageValue returns the image field supplied with the request, if any
func (r SaveRequest) ImageValue() (string, bool) {
	v, ok := r.Fields["packageImage"].(string)
	return v, ok
}

// TrackingNumber returns the tracking number supplied with the request, if any
func (r SaveRequest) TrackingNumber() string {
	v, _ := r.Fields["trackingNumber"].(string)
	return v
}
