package matchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing authorization token"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/likes/bob":
			_, _ = w.Write([]byte(`{"like":{"id":"e1"},"is_mutual":true,"mutual_transition":true}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/likes/ghost":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"user not found"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/likes/bob":
			_, _ = w.Write([]byte(`{"removed":null,"was_mutual":false}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/likes/sent":
			writePage(w, r, 150, "u")
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/likes/received":
			writePage(w, r, 1, "r")
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/likes/mutual":
			writePage(w, r, 0, "m")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func writePage(w http.ResponseWriter, r *http.Request, total int, prefix string) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	items := []map[string]string{}
	for i := offset; i < total && i < offset+limit; i++ {
		items = append(items, map[string]string{"user_id": fmt.Sprintf("%s%d", prefix, i)})
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func TestHTTPAPI_Like(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	api := NewHTTPAPI(srv.URL, func() string { return "tok" })

	res, err := api.Like(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, res.IsMutual)
	assert.True(t, res.MutualTransition)

	_, err = api.Like(context.Background(), "ghost")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.NotFound())
	assert.Equal(t, "user not found", apiErr.Message)

	require.NoError(t, api.Unlike(context.Background(), "bob"))
}

func TestHTTPAPI_SnapshotPages(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	api := NewHTTPAPI(srv.URL+"/", func() string { return "tok" })

	snap, err := api.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Liked, 150)
	assert.Equal(t, "u149", snap.Liked[149])
	assert.Equal(t, []string{"r0"}, snap.LikedBy)
	assert.Empty(t, snap.Mutual)
}

func TestHTTPAPI_Unauthorized(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	api := NewHTTPAPI(srv.URL, func() string { return "" })

	err := api.Unlike(context.Background(), "bob")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
