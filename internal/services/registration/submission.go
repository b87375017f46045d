// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registration

import (
	"io"
	"strings"
)

// File is an uploaded file part of a submission.
type File struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Submission is a registration form: text fields plus uploaded files.
// A document may also arrive as a text field holding a reference returned
// by an earlier upload.
type Submission struct {
	Fields map[string]string
	Files  map[string]File
}

// Get returns the trimmed value of a text field.
func (s *Submission) Get(name string) string {
	return strings.TrimSpace(s.Fields[name])
}

func (s *Submission) normalize(aliases map[string]string) {
	if s.Fields == nil {
		s.Fields = map[string]string{}
	}
	if s.Files == nil {
		s.Files = map[string]File{}
	}
	for alias, name := range aliases {
		if f, ok := s.Files[alias]; ok {
			if _, exists := s.Files[name]; !exists {
				s.Files[name] = f
			}
		}
		if v, ok := s.Fields[alias]; ok && s.Get(name) == "" {
			s.Fields[name] = v
		}
	}
}
