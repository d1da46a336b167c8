package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) shareWithUsers(c *gin.Context) {
	var req shareUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "targetEmails is required")
		return
	}

	out, err := s.deps.Grants.GrantTo(c.Request.Context(), currentUser(c), c.Param("id"), req.TargetEmails)
	if err != nil {
		if errors.Is(err, common.ErrorDenied) {
			abortMessage(c, http.StatusForbidden, "only the owner can share this file")
			return
		}
		s.writeError(c, err)
		return
	}

	granted := out.Granted
	if granted == nil {
		granted = []string{}
	}
	notFound := out.NotFound
	if notFound == nil {
		notFound = []string{}
	}
	msg := "File shared successfully"
	if len(notFound) > 0 {
		msg = "File shared; some recipients do not have an account"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "granted": granted, "notFound": notFound})
}

func (s *HTTPServer) listGrants(c *gin.Context) {
	grants, err := s.deps.Grants.List(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]grantDTO, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantDTO{UserID: g.GranteeID, CreatedAt: g.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

func (s *HTTPServer) revokeGrant(c *gin.Context) {
	if err := s.deps.Grants.Revoke(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("userId")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) createLink(c *gin.Context) {
	link, err := s.deps.Links.CreateOrRegenerate(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.toLinkDTO(link))
}

func (s *HTTPServer) activeLink(c *gin.Context) {
	link, err := s.deps.Links.Active(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toLinkDTO(link))
}

func (s *HTTPServer) revokeLink(c *gin.Context) {
	if err := s.deps.Links.Revoke(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// redeemLink streams the file behind a share token. Every failure other than
// a missing login renders the same message so callers cannot tell tokens apart.
func (s *HTTPServer) redeemLink(c *gin.Context) {
	f, rc, err := s.deps.Links.Download(c.Request.Context(), c.Param("token"), currentUser(c))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnauthenticated):
			abortMessage(c, http.StatusUnauthorized, "log in to open this link")
		case errors.Is(err, common.ErrLinkTokenNotFound), errors.Is(err, common.ErrLinkTokenRevoked),
			errors.Is(err, common.ErrorNotFound):
			abortMessage(c, http.StatusNotFound, msgLinkInvalid)
		default:
			s.writeError(c, err)
		}
		return
	}
	defer rc.Close()
	sendFile(c, f, rc)
}

func (s *HTTPServer) toLinkDTO(l *models.ShareLink) linkDTO {
	return linkDTO{ShareLink: s.config.ShareURL(l.Token), Token: l.Token, CreatedAt: l.CreatedAt}
}
