package semantic

import "http-toolkit/lib/ds/ordered"

// Upload is a request payload sent as multipart/form-data.
// Fields become plain parts, files are attached from the local file system.
type Upload struct {
	Fields *ordered.Map[string, string]
	Files  []UploadFile
}

// UploadFile attaches the file at Path as the part named Name.
// Name also becomes the file name of the part.
type UploadFile struct {
	Path string
	Name string
}

func NewUpload() *Upload {
	return &Upload{Fields: ordered.New[string, string]()}
}

func (u *Upload) AddField(name, value string) *Upload {
	if u.Fields == nil {
		u.Fields = ordered.New[string, string]()
	}
	u.Fields.Set(name, value)
	return u
}

func (u *Upload) AddFile(name, path string) *Upload {
	u.Files = append(u.Files, UploadFile{Path: path, Name: name})
	return u
}
