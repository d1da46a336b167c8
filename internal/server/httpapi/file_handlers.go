package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/fileshare/internal/server/admission"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/gin-gonic/gin"
)

const uploadField = "files"

func (s *HTTPServer) listFiles(c *gin.Context) {
	userID := currentUser(c)
	files, err := s.deps.Files.ListFiles(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileDTOs(files, userID))
}

func (s *HTTPServer) upload(c *gin.Context) {
	policy := s.deps.Admission.Policy()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxRequestBytes())

	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			abortMessage(c, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		abortMessage(c, http.StatusBadRequest, "expected a multipart form with files")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	headers := form.File[uploadField]
	cands := make([]admission.Candidate, 0, len(headers))
	for _, fh := range headers {
		cands = append(cands, candidateFromHeader(fh))
	}

	userID := currentUser(c)
	files, err := s.deps.Admission.Admit(c.Request.Context(), userID, cands)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Files uploaded successfully", "files": toFileDTOs(files, userID)})
}

// candidateFromHeader uses the part's declared type, falling back to the
// file extension when the client sent none.
func candidateFromHeader(fh *multipart.FileHeader) admission.Candidate {
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
			ct = byExt
		}
	}
	return admission.Candidate{
		Name:        filepath.Base(fh.Filename),
		ContentType: ct,
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func (s *HTTPServer) describeFile(c *gin.Context) {
	userID := currentUser(c)
	f, err := s.deps.Files.Describe(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileDTO(f, userID))
}

func (s *HTTPServer) downloadFile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	if s.config.PresignDownloads {
		if p, ok := s.deps.Files.Presigner(); ok {
			f, err := s.deps.Files.Describe(ctx, userID, c.Param("id"))
			if err != nil {
				s.writeError(c, err)
				return
			}
			url, err := p.PresignGet(ctx, f.StorageKey, f.Name, s.config.PresignTTL)
			if err != nil {
				s.writeError(c, err)
				return
			}
			c.Redirect(http.StatusFound, url)
			return
		}
	}

	f, rc, err := s.deps.Files.Download(ctx, userID, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer rc.Close()
	sendFile(c, f, rc)
}

func sendFile(c *gin.Context, f *models.File, rc io.Reader) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Name})
	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
	})
}
