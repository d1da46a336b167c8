// Package api is the HTTP client for the fileshare server. It keeps the
// session current, refreshing the access token once when the server answers
// 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/client/session"
	"github.com/dmitrijs2005/fileshare/internal/common"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status     int
	Message    string
	Violations []Violation
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

type Violation struct {
	Rule string `json:"rule"`
	Name string `json:"name"`
}

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type File struct {
	ID        string    `json:"_id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"fileType"`
	FileSize  int64     `json:"fileSize"`
	OwnerID   string    `json:"ownerId"`
	IsOwner   bool      `json:"isOwner"`
	CreatedAt time.Time `json:"createdAt"`
}

type ShareResult struct {
	Message  string   `json:"message"`
	Granted  []string `json:"granted"`
	NotFound []string `json:"notFound"`
}

type Link struct {
	ShareLink string `json:"shareLink"`
	Token     string `json:"token"`
}

// Download is an open file body. The caller closes Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// bodyFunc builds a fresh request body for each attempt.
type bodyFunc func() (io.Reader, string, error)

type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Store
}

func New(baseURL string, timeout time.Duration, sessions *session.Store) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		sessions: sessions,
	}
}

func jsonBody(v any) bodyFunc {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/register", "", jsonBody(map[string]string{
		"name": name, "email": email, "password": password,
	}))
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login authenticates and stores the session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/login", "", jsonBody(map[string]string{
		"email": email, "password": password,
	}))
	if err != nil {
		return nil, err
	}
	var t tokens
	if err := decodeJSON(resp, &t); err != nil {
		return nil, err
	}
	if err := c.sessions.Save(&session.Session{Email: email, AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}); err != nil {
		return nil, err
	}
	return t.User, nil
}

func (c *Client) Logout() error {
	return c.sessions.Clear()
}

func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	resp, err := c.authed(ctx, http.MethodGet, "/api/files/my-files", nil)
	if err != nil {
		return nil, err
	}
	var files []File
	if err := decodeJSON(resp, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) Share(ctx context.Context, fileID string, emails []string) (*ShareResult, error) {
	resp, err := c.authed(ctx, http.MethodPost, "/api/files/"+url.PathEscape(fileID)+"/share/user",
		jsonBody(map[string][]string{"targetEmails": emails}))
	if err != nil {
		return nil, err
	}
	var out ShareResult
	return &out, decodeJSON(resp, &out)
}

func (c *Client) CreateLink(ctx context.Context, fileID string) (*Link, error) {
	resp, err := c.authed(ctx, http.MethodPost, "/api/files/"+url.PathEscape(fileID)+"/share/link", nil)
	if err != nil {
		return nil, err
	}
	var out Link
	return &out, decodeJSON(resp, &out)
}

func (c *Client) RevokeLink(ctx context.Context, fileID string) error {
	resp, err := c.authed(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID)+"/share/link", nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) Download(ctx context.Context, fileID string) (*Download, error) {
	resp, err := c.authed(ctx, http.MethodGet, "/api/files/"+url.PathEscape(fileID)+"/download", nil)
	if err != nil {
		return nil, err
	}
	return toDownload(resp), nil
}

// Redeem downloads the file behind a share token. token may also be a full
// share URL.
func (c *Client) Redeem(ctx context.Context, token string) (*Download, error) {
	if i := strings.LastIndex(token, "/"); i >= 0 {
		token = token[i+1:]
	}
	resp, err := c.authed(ctx, http.MethodGet, "/api/files/access/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, err
	}
	return toDownload(resp), nil
}

func toDownload(resp *http.Response) *Download {
	d := &Download{ContentType: resp.Header.Get("Content-Type"), Size: resp.ContentLength, Body: resp.Body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Filename = params["filename"]
	}
	return d
}

// authed sends with the stored access token and retries once after a token
// refresh when the server rejects it.
func (c *Client) authed(ctx context.Context, method, path string, body bodyFunc) (*http.Response, error) {
	sess, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, path, sess.AccessToken, body)
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || sess.RefreshToken == "" {
		return resp, err
	}

	if err := c.refresh(ctx, sess); err != nil {
		return nil, err
	}
	return c.send(ctx, method, path, sess.AccessToken, body)
}

func (c *Client) refresh(ctx context.Context, sess *session.Session) error {
	resp, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", "", jsonBody(map[string]string{"refreshToken": sess.RefreshToken}))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			_ = c.sessions.Clear()
			return session.ErrNoSession
		}
		return err
	}
	var t tokens
	if err := decodeJSON(resp, &t); err != nil {
		return err
	}
	sess.AccessToken, sess.RefreshToken = t.AccessToken, t.RefreshToken
	return c.sessions.Save(sess)
}

// send performs one request. Non-2xx answers are returned as *APIError with
// the body already closed.
func (c *Client) send(ctx context.Context, method, path, accessToken string, body bodyFunc) (*http.Response, error) {
	var r io.Reader
	var contentType string
	if body != nil {
		var err error
		if r, contentType, err = body(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Message    string      `json:"message"`
		Violations []Violation `json:"violations"`
	}
	if json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload) == nil {
		apiErr.Message, apiErr.Violations = payload.Message, payload.Violations
	}
	return nil, apiErr
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
