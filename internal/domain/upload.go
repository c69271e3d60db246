package domain

// UploadRecord is the outcome of pushing one downloaded file to the artifact
// sink. Identifier is the correlation key when the upload was produced by our
// own pipeline; externally produced listings may only carry a file name.
type UploadRecord struct {
	FileName   string `json:"file_name"`
	Identifier string `json:"identifier,omitempty"`
	Uploaded   bool   `json:"uploaded"`
	RemoteLink string `json:"remote_link,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ResultDetail is an item result annotated with its upload outcome, the shape
// returned to API clients.
type ResultDetail struct {
	Identifier    string    `json:"identifier"`
	Downloaded    bool      `json:"download_success"`
	DownloadError string    `json:"download_error,omitempty"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`
	RetriesUsed   int       `json:"retries_used"`
	Uploaded      bool      `json:"upload_success"`
	RemoteLink    string    `json:"drive_link,omitempty"`
}
