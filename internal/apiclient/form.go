package apiclient

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Form is a multipart/form-data body built up field by field.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name, value string
}

type formFile struct {
	field, filename string
	content         io.Reader
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) Field(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// File attaches content under field. A nil reader is skipped so optional
// uploads can be chained unconditionally.
func (f *Form) File(field, filename string, content io.Reader) *Form {
	if content == nil {
		return f
	}
	f.files = append(f.files, formFile{field: field, filename: filename, content: content})
	return f
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
