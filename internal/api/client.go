// Package api - типизированный клиент REST API Testbook.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/UkralStul/testbook/internal/domain"
	"github.com/UkralStul/testbook/internal/logging"
)

// Error - ответ API со статусом не 2xx.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
}

// StatusCode возвращает HTTP-статус ошибки API или 0 для прочих ошибок.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Page - параметры пагинации лент.
type Page struct {
	Skip  int
	Limit int
}

// DefaultPage совпадает с умолчаниями сервера.
var DefaultPage = Page{Skip: 0, Limit: 50}

func (p Page) query() string {
	if p.Limit <= 0 {
		p.Limit = DefaultPage.Limit
	}
	v := url.Values{}
	v.Set("skip", strconv.Itoa(p.Skip))
	v.Set("limit", strconv.Itoa(p.Limit))
	return "?" + v.Encode()
}

// Client ходит в API от имени пользователя с токеном token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = logging.OrNop(l) }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// === Posts ===

func (c *Client) CreatePost(ctx context.Context, in domain.NewPost) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodPost, "/posts", in, &p)
	return p, err
}

func (c *Client) UpdatePost(ctx context.Context, id int64, in domain.NewPost) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodPut, postPath(id), in, &p)
	return p, err
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, postPath(id), nil, nil)
}

func (c *Client) GetPost(ctx context.Context, id int64) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodGet, postPath(id), nil, &p)
	return p, err
}

func (c *Client) CreateRepost(ctx context.Context, in domain.NewRepost) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodPost, "/posts/repost", in, &p)
	return p, err
}

// DeleteRepost снимает репост текущего пользователя с исходного поста.
func (c *Client) DeleteRepost(ctx context.Context, originalPostID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/repost/%d", originalPostID), nil, nil)
}

func (c *Client) AddComment(ctx context.Context, postID int64, content string) (domain.Comment, error) {
	var cm domain.Comment
	err := c.do(ctx, http.MethodPost, postPath(postID)+"/comments", domain.NewComment{Content: content}, &cm)
	return cm, err
}

func (c *Client) AddReaction(ctx context.Context, postID int64, t domain.ReactionType) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodPost, postPath(postID)+"/reactions", domain.NewReaction{ReactionType: t}, &p)
	return p, err
}

func (c *Client) RemoveReaction(ctx context.Context, postID int64) (domain.Post, error) {
	var p domain.Post
	err := c.do(ctx, http.MethodDelete, postPath(postID)+"/reactions", nil, &p)
	return p, err
}

// === Feed ===

func (c *Client) AllFeed(ctx context.Context, page Page) ([]domain.Post, error) {
	var posts []domain.Post
	err := c.do(ctx, http.MethodGet, "/feed/all"+page.query(), nil, &posts)
	return posts, err
}

func (c *Client) FollowingFeed(ctx context.Context, page Page) ([]domain.Post, error) {
	var posts []domain.Post
	err := c.do(ctx, http.MethodGet, "/feed/following"+page.query(), nil, &posts)
	return posts, err
}

// === Users ===

func (c *Client) GetProfile(ctx context.Context, username string) (domain.Profile, error) {
	var p domain.Profile
	err := c.do(ctx, http.MethodGet, userPath(username), nil, &p)
	return p, err
}

func (c *Client) UserPosts(ctx context.Context, username string, page Page) ([]domain.Post, error) {
	var posts []domain.Post
	err := c.do(ctx, http.MethodGet, userPath(username)+"/posts"+page.query(), nil, &posts)
	return posts, err
}

func (c *Client) Followers(ctx context.Context, username string) ([]domain.UserListItem, error) {
	var users []domain.UserListItem
	err := c.do(ctx, http.MethodGet, userPath(username)+"/followers", nil, &users)
	return users, err
}

func (c *Client) Following(ctx context.Context, username string) ([]domain.UserListItem, error) {
	var users []domain.UserListItem
	err := c.do(ctx, http.MethodGet, userPath(username)+"/following", nil, &users)
	return users, err
}

func (c *Client) Follow(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, userPath(username)+"/follow", nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, userPath(username)+"/follow", nil, nil)
}

func (c *Client) Block(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodPost, userPath(username)+"/block", nil, nil)
}

func (c *Client) Unblock(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, userPath(username)+"/block", nil, nil)
}

// === Transport ===

func postPath(id int64) string { return fmt.Sprintf("/posts/%d", id) }

func userPath(username string) string { return "/users/" + url.PathEscape(username) }

// do выполняет запрос и декодирует тело ответа в out (если out не nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var payload struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Detail = payload.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}
