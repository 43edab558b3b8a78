package image

// Image is a fetched and decoded image. Data holds the original encoded bytes.
type Image struct {
	URL         string
	ContentType string
	Format      string
	Width       int
	Height      int
	Data        []byte
}

// Size returns the encoded size in bytes.
func (i Image) Size() int { return len(i.Data) }
