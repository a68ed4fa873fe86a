package models

import "encoding/json"

// FileResult is the outcome of transforming one upload. Success results carry
// sizes and a ratio, failures carry only the error message.
type FileResult struct {
	OriginalName     string
	CompressedName   string
	OriginalSize     int64
	CompressedSize   int64
	CompressionRatio float64
	Success          bool
	Error            string
}

type fileSuccessJSON struct {
	OriginalName     string  `json:"originalName"`
	CompressedName   string  `json:"compressedName"`
	OriginalSize     int64   `json:"originalSize"`
	CompressedSize   int64   `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	Success          bool    `json:"success"`
}

type fileFailureJSON struct {
	OriginalName string `json:"originalName"`
	Error        string `json:"error"`
	Success      bool   `json:"success"`
}

func NewFailedResult(originalName string, err error) FileResult {
	return FileResult{
		OriginalName: originalName,
		Error:        err.Error(),
	}
}

func (r FileResult) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(fileFailureJSON{
			OriginalName: r.OriginalName,
			Error:        r.Error,
		})
	}

	return json.Marshal(fileSuccessJSON{
		OriginalName:     r.OriginalName,
		CompressedName:   r.CompressedName,
		OriginalSize:     r.OriginalSize,
		CompressedSize:   r.CompressedSize,
		CompressionRatio: r.CompressionRatio,
		Success:          true,
	})
}

func (r *FileResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		fileSuccessJSON
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = FileResult{
		OriginalName:     raw.OriginalName,
		CompressedName:   raw.CompressedName,
		OriginalSize:     raw.OriginalSize,
		CompressedSize:   raw.CompressedSize,
		CompressionRatio: raw.CompressionRatio,
		Success:          raw.Success,
		Error:            raw.Error,
	}
	return nil
}
