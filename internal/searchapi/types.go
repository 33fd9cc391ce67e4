package searchapi

// DefaultK is the number of neighbours requested per search.
const DefaultK = 5

// UploadResponse is the envelope returned by POST /upload.
type UploadResponse struct {
	Success          bool   `json:"success"`
	Filename         string `json:"filename,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	ImageID          int64  `json:"image_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Filename string `json:"filename"`
	K        int    `json:"k"`
}

// SearchResult is one ranked match. Lower distance means more similar.
type SearchResult struct {
	Filename string  `json:"filename" yaml:"filename"`
	Path     string  `json:"path" yaml:"path"`
	Distance float64 `json:"distance" yaml:"distance"`
}

// UploadRecord is one entry of GET /api/history.
type UploadRecord struct {
	ID               int64  `json:"id" yaml:"id"`
	Filename         string `json:"filename" yaml:"filename"`
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`
	UploadDate       string `json:"upload_date" yaml:"upload_date"`
	FileSize         int64  `json:"file_size" yaml:"file_size"`
}
