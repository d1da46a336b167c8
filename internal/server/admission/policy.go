// Package admission decides whether a batch of uploads may enter the file
// registry. The same Policy drives the client pre-filter, the HTTP body limit
// and the authoritative server-side check.
package admission

import (
	"io"
	"mime"
	"strings"
)

const (
	DefaultMaxFiles     = 5
	DefaultMaxFileBytes = 5 << 20

	// multipartOverhead covers boundaries and part headers on top of the
	// file payloads.
	multipartOverhead = 1 << 20
)

// DefaultAllowedTypes is the reference allow-set: images, PDF, Word, Excel
// and CSV.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/svg+xml",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/csv",
}

// Candidate is one file offered for upload. Open is called at most once and
// only after the batch passed validation.
type Candidate struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type Policy struct {
	MaxFiles     int
	MaxFileBytes int64
	AllowedTypes map[string]struct{}
}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultMaxFiles, DefaultMaxFileBytes, nil)
}

// NewPolicy builds a policy. Non-positive limits and an empty allow-list fall
// back to the defaults.
func NewPolicy(maxFiles int, maxFileBytes int64, allowed []string) Policy {
	if maxFiles < 1 {
		maxFiles = DefaultMaxFiles
	}
	if maxFileBytes < 1 {
		maxFileBytes = DefaultMaxFileBytes
	}
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	set := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		set[normalizeType(t)] = struct{}{}
	}
	return Policy{MaxFiles: maxFiles, MaxFileBytes: maxFileBytes, AllowedTypes: set}
}

// Allows reports whether the declared content type is in the allow-set.
// Parameters such as charset are ignored.
func (p Policy) Allows(contentType string) bool {
	_, ok := p.AllowedTypes[normalizeType(contentType)]
	return ok
}

// MaxRequestBytes bounds a whole multipart upload body.
func (p Policy) MaxRequestBytes() int64 {
	return int64(p.MaxFiles)*p.MaxFileBytes + multipartOverhead
}

// Check validates the batch and returns *Error listing every violation.
// A bad file count stops validation early since per-file results would not
// change the outcome.
func (p Policy) Check(cands []Candidate) error {
	if n := len(cands); n < 1 || n > p.MaxFiles {
		return &Error{Violations: []Violation{{Rule: RuleTooManyFiles, Limit: int64(p.MaxFiles), Actual: int64(n)}}}
	}

	var vs []Violation
	for _, c := range cands {
		vs = append(vs, p.checkOne(c)...)
	}
	if len(vs) > 0 {
		return &Error{Violations: vs}
	}
	return nil
}

// PreFilter drops candidates that can never pass and reports why. It is a
// convenience for clients; Check remains authoritative.
func (p Policy) PreFilter(cands []Candidate) ([]Candidate, []Violation) {
	var kept []Candidate
	var dropped []Violation
	for _, c := range cands {
		if vs := p.checkOne(c); len(vs) > 0 {
			dropped = append(dropped, vs...)
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

func (p Policy) checkOne(c Candidate) []Violation {
	var vs []Violation
	switch {
	case c.Size <= 0:
		vs = append(vs, Violation{Rule: RuleEmptyFile, Name: c.Name})
	case c.Size > p.MaxFileBytes:
		vs = append(vs, Violation{Rule: RuleFileTooLarge, Name: c.Name, Limit: p.MaxFileBytes, Actual: c.Size})
	}
	if !p.Allows(c.ContentType) {
		vs = append(vs, Violation{Rule: RuleTypeNotAllowed, Name: c.Name, ContentType: c.ContentType})
	}
	return vs
}

func normalizeType(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
