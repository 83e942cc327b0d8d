package entity

// SelectedFile is one document picked for a batch. It is treated as immutable once selected.
type SelectedFile struct {
	Name        string `json:"name"`
	Path        string `json:"path,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Size        int64  `json:"size"`
	ContentHash string `json:"content_hash,omitempty"`
	RawContent  []byte `json:"-"`
}

// Ref drops the raw bytes so the file can be embedded in reports.
func (f SelectedFile) Ref() FileRef {
	return FileRef{Name: f.Name, Path: f.Path, MimeType: f.MimeType, Size: f.Size}
}

// Clone returns a copy that shares no memory with f.
func (f SelectedFile) Clone() SelectedFile {
	out := f
	if f.RawContent != nil {
		out.RawContent = append([]byte(nil), f.RawContent...)
	}
	return out
}

// FileRef identifies a file inside a report.
type FileRef struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
}

// ValidationVerdict is the outcome of validating one file.
type ValidationVerdict struct {
	File   FileRef `json:"file"`
	Valid  bool    `json:"valid"`
	Reason string  `json:"reason,omitempty"`
}
