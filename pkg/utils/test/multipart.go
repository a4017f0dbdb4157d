package testutils

import (
	"bytes"
	"io"
	"mime/multipart"
)

func recordMultipart(rec *RecordedRequest, raw []byte, boundary string) {
	rec.Fields = make(map[string]string)

	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF ends a well formed body.
			return
		}

		data, _ := io.ReadAll(part)
		rec.FieldOrder = append(rec.FieldOrder, part.FormName())

		if part.FileName() != "" {
			rec.FileName = part.FileName()
			rec.FileContent = data
			continue
		}
		rec.Fields[part.FormName()] = string(data)
	}
}
