// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jeranaias/docent-tui/internal/api"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// paragraphBreak splits plain text on blank lines.
var paragraphBreak = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, api.MaxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File size exceeds maximum allowed size of 50MB")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}
	defer file.Close()

	original := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if header.Filename == "" || original == "." || original == "/" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}
	if !api.AllowedFile(original) {
		writeError(w, http.StatusBadRequest, "File type is not allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read the uploaded file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "File is empty")
		return
	}
	if len(data) > api.MaxUploadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "File size exceeds maximum allowed size of 50MB")
		return
	}

	ext := strings.ToLower(filepath.Ext(original))
	stored := uuid.NewString() + ext
	doc := s.store.addDocument(userID(r), stored, original, int64(len(data)),
		chunkText(original, data), s.now(), s.opts.IndexDelay)

	log.Printf("UPLOAD | user=%d document=%d size=%d", doc.UserID, doc.ID, doc.FileSize)
	writeJSON(w, http.StatusCreated, map[string]api.Document{"document": doc})
}

// chunkText splits plain-text documents into paragraph chunks. Other
// formats need real extraction, which only the production backend does.
func chunkText(name string, data []byte) []api.Chunk {
	if strings.ToLower(filepath.Ext(name)) != ".txt" || !utf8.Valid(data) {
		return nil
	}
	var chunks []api.Chunk
	for _, para := range paragraphBreak.Split(string(data), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, api.Chunk{
			Text: para,
			Metadata: map[string]any{
				"source":    name,
				"paragraph": len(chunks) + 1,
			},
		})
	}
	return chunks
}
