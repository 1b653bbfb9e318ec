package matchclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const snapshotPageSize = 100

// LikeResponse is the part of the like endpoint response the cache needs.
type LikeResponse struct {
	IsMutual         bool `json:"is_mutual"`
	MutualTransition bool `json:"mutual_transition"`
}

// Snapshot is the server truth used to rebuild the cache.
type Snapshot struct {
	Liked   []string
	LikedBy []string
	Mutual  []string
}

// API is the relationship endpoint surface the reconciler talks to.
type API interface {
	Like(ctx context.Context, userID string) (*LikeResponse, error)
	Unlike(ctx context.Context, userID string) error
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("matchcore api: %d %s", e.StatusCode, e.Message)
}

// NotFound reports a 404, e.g. an unknown user.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

type errorBody struct {
	Error string `json:"error"`
}

// HTTPAPI calls the /api/v1/likes endpoints.
type HTTPAPI struct {
	baseURL string
	client  *resty.Client
}

// NewHTTPAPI builds a client; token is called before every request so a
// rotated credential is picked up without rebuilding the client.
func NewHTTPAPI(baseURL string, token func() string) *HTTPAPI {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			if t := token(); t != "" {
				r.SetAuthToken(t)
			}
			return nil
		})

	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		client:  client,
	}
}

func (a *HTTPAPI) Like(ctx context.Context, userID string) (*LikeResponse, error) {
	var out LikeResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{}).
		Post(a.baseURL + "/likes/" + url.PathEscape(userID))
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) Unlike(ctx context.Context, userID string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		Delete(a.baseURL + "/likes/" + url.PathEscape(userID))
	return check(resp, err)
}

func (a *HTTPAPI) Snapshot(ctx context.Context) (*Snapshot, error) {
	liked, err := a.listIDs(ctx, "sent")
	if err != nil {
		return nil, err
	}
	likedBy, err := a.listIDs(ctx, "received")
	if err != nil {
		return nil, err
	}
	mutual, err := a.listIDs(ctx, "mutual")
	if err != nil {
		return nil, err
	}
	return &Snapshot{Liked: liked, LikedBy: likedBy, Mutual: mutual}, nil
}

type listPage struct {
	Items []struct {
		UserID string `json:"user_id"`
	} `json:"items"`
	Total int `json:"total"`
}

func (a *HTTPAPI) listIDs(ctx context.Context, kind string) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += snapshotPageSize {
		var page listPage
		resp, err := a.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"limit":  strconv.Itoa(snapshotPageSize),
				"offset": strconv.Itoa(offset),
			}).
			SetResult(&page).
			SetError(&errorBody{}).
			Get(a.baseURL + "/likes/" + kind)
		if err := check(resp, err); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			ids = append(ids, item.UserID)
		}
		if len(page.Items) < snapshotPageSize || offset+snapshotPageSize >= page.Total {
			return ids, nil
		}
	}
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("matchcore api: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := http.StatusText(resp.StatusCode())
	if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
