// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxUploadSize is the largest document the backend accepts.
const MaxUploadSize = 50 * 1024 * 1024

// AllowedExtensions are the document types the backend can index.
var AllowedExtensions = []string{"txt", "pdf", "docx", "doc"}

// Upload validation errors. They are raised before any request is built.
var (
	ErrUnsupportedFileType = errors.New("file type is not allowed")
	ErrEmptyFile           = errors.New("file is empty")
	ErrFileTooLarge        = errors.New("file exceeds the 50 MB limit")
)

// AllowedFile reports whether name has an allowed extension.
func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// ValidateUpload checks a candidate upload by name and size.
func ValidateUpload(name string, size int64) error {
	if !AllowedFile(name) {
		return fmt.Errorf("%w: %s (allowed: %s)", ErrUnsupportedFileType, filepath.Base(name), strings.Join(AllowedExtensions, ", "))
	}
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, filepath.Base(name))
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%w: %s", ErrFileTooLarge, filepath.Base(name))
	}
	return nil
}

// UploadFile validates and uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if err := ValidateUpload(path, info.Size()); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.Upload(ctx, filepath.Base(path), data)
}

// Upload sends data as a multipart "file" field. Uploads use the chat
// timeout since large documents take a while to transfer.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*Document, error) {
	if err := ValidateUpload(name, int64(len(data))); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var out struct {
		Document Document `json:"document"`
	}
	cl := call{
		method:      http.MethodPost,
		path:        "/documents/upload",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		timeout:     c.chatTimeout,
	}
	if err := c.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return &out.Document, nil
}
