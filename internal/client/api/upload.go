package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/dmitrijs2005/fileshare/internal/server/admission"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload streams the candidates as one multipart batch. The server applies
// the authoritative admission check.
func (c *Client) Upload(ctx context.Context, cands []admission.Candidate) ([]File, error) {
	resp, err := c.authed(ctx, http.MethodPost, "/api/files/upload", multipartBody(cands))
	if err != nil {
		return nil, err
	}
	var out struct {
		Files []File `json:"files"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

func multipartBody(cands []admission.Candidate) bodyFunc {
	return func() (io.Reader, string, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeParts(mw, cands))
		}()
		return pr, mw.FormDataContentType(), nil
	}
}

func writeParts(mw *multipart.Writer, cands []admission.Candidate) error {
	for _, cand := range cands {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, quoteEscaper.Replace(cand.Name)))
		h.Set("Content-Type", cand.ContentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return err
		}
		if err := copyCandidate(w, cand); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyCandidate(w io.Writer, cand admission.Candidate) error {
	rc, err := cand.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", cand.Name, err)
	}
	defer rc.Close()
	_, err = io.Copy(w, rc)
	return err
}
