package httpapi

import (
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type shareUsersRequest struct {
	TargetEmails []string `json:"targetEmails" binding:"required"`
}

type userDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type fileDTO struct {
	ID        string    `json:"_id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	OwnerID   string    `json:"ownerId"`
	IsOwner   bool      `json:"isOwner"`
	CreatedAt time.Time `json:"createdAt"`
}

type grantDTO struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokensDTO struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         *userDTO `json:"user,omitempty"`
}

type linkDTO struct {
	ShareLink string    `json:"shareLink"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *models.User) *userDTO {
	return &userDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toFileDTO(f *models.File, viewerID string) fileDTO {
	return fileDTO{
		ID:        f.ID,
		Filename:  f.Name,
		FileType:  f.ContentType,
		FileSize:  f.Size,
		OwnerID:   f.OwnerID,
		IsOwner:   f.OwnerID == viewerID,
		CreatedAt: f.CreatedAt,
	}
}

func toFileDTOs(files []*models.File, viewerID string) []fileDTO {
	out := make([]fileDTO, 0, len(files))
	for _, f := range files {
		out = append(out, toFileDTO(f, viewerID))
	}
	return out
}
