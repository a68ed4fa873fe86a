package models

// UploadedFile is an upload staged on disk before the batch runs.
type UploadedFile struct {
	Name        string `json:"name"`
	TempPath    string `json:"-"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
