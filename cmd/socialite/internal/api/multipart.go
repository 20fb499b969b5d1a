// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/AleutianAI/socialite/pkg/validation"
)

type formField struct {
	name  string
	value string
}

type formFile struct {
	name string
	file validation.MediaFile
}

// multipartForm streams fields and files as multipart/form-data without
// buffering file contents in memory.
type multipartForm struct {
	fields []formField
	files  []formFile
}

func newMultipartForm() *multipartForm {
	return &multipartForm{}
}

func (f *multipartForm) addField(name, value string) {
	f.fields = append(f.fields, formField{name: name, value: value})
}

func (f *multipartForm) addFile(name string, file validation.MediaFile) {
	f.files = append(f.files, formFile{name: name, file: file})
}

// reader returns the encoded body and its Content-Type. Encoding runs in a
// goroutine that ends when the body is fully read or closed.
func (f *multipartForm) reader(logger *slog.Logger) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := f.write(mw)
		if err == nil {
			err = mw.Close()
		}
		if err != nil && err != io.ErrClosedPipe {
			logger.Warn("multipart encoding stopped", "error", err)
		}
		_ = pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func (f *multipartForm) write(mw *multipart.Writer) error {
	for _, field := range f.fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return fmt.Errorf("write field %s: %w", field.name, err)
		}
	}
	for _, ff := range f.files {
		if err := writeFilePart(mw, ff); err != nil {
			return err
		}
	}
	return nil
}

func writeFilePart(mw *multipart.Writer, ff formFile) error {
	src, err := os.Open(ff.file.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", ff.file.Path, err)
	}
	defer src.Close()

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     ff.name,
		"filename": filepath.Base(ff.file.Path),
	}))
	header.Set("Content-Type", ff.file.MIME)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create part %s: %w", ff.name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", ff.file.Path, err)
	}
	return nil
}
