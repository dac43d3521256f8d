package binder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmatch/notifier/pkg/binder"
)

type sendRequest struct {
	Title   string         `json:"title"`
	UserIDs []int64        `json:"user_ids"`
	Data    map[string]any `json:"data"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	bind := binder.JSON()

	t.Run("valid", func(t *testing.T) {
		var req sendRequest
		err := bind(jsonRequest(`{"title":"Hi\u0000 there","user_ids":[1,2],"data":{"k":1}}`, "application/json; charset=utf-8"), &req)
		require.NoError(t, err)
		assert.Equal(t, "Hi there", req.Title)
		assert.Equal(t, []int64{1, 2}, req.UserIDs)
		assert.Equal(t, map[string]any{"k": float64(1)}, req.Data)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     error
	}{
		{"missing content type", `{}`, "", binder.ErrMissingContentType},
		{"wrong content type", `{}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"unknown field", `{"nope":1}`, "application/json", binder.ErrFailedToParseJSON},
		{"trailing data", `{"title":"a"}{"title":"b"}`, "application/json", binder.ErrFailedToParseJSON},
		{"wrong type", `{"user_ids":"1"}`, "application/json", binder.ErrFailedToParseJSON},
		{"empty", ``, "application/json", binder.ErrFailedToParseJSON},
		{"too large", `{"title":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`, "application/json", binder.ErrFailedToParseJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req sendRequest
			err := bind(jsonRequest(tt.body, tt.contentType), &req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, binder.IsBindError(err))
		})
	}
}

type listRequest struct {
	ID     int64    `path:"id"`
	Unread bool     `query:"unread"`
	Types  []string `query:"type"`
	Limit  *int     `query:"limit"`
	Other  string
}

func TestQuery(t *testing.T) {
	bind := binder.Query()

	var req listRequest
	r := httptest.NewRequest(http.MethodGet, "/?unread=true&type=info,warning&type=error&limit=20&Other=x", nil)
	require.NoError(t, bind(r, &req))
	assert.True(t, req.Unread)
	assert.Equal(t, []string{"info", "warning", "error"}, req.Types)
	require.NotNil(t, req.Limit)
	assert.Equal(t, 20, *req.Limit)
	assert.Empty(t, req.Other, "untagged fields are not bound")

	err := bind(httptest.NewRequest(http.MethodGet, "/", nil), &req)
	assert.ErrorIs(t, err, binder.ErrBinderNotApplicable)

	err = bind(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), &req)
	assert.ErrorIs(t, err, binder.ErrFailedToParseQuery)
}

func TestPath(t *testing.T) {
	bind := binder.Path(chi.URLParam)

	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	var req listRequest
	require.NoError(t, bind(withParam("42"), &req))
	assert.Equal(t, int64(42), req.ID)

	err := bind(withParam("abc"), &req)
	assert.ErrorIs(t, err, binder.ErrFailedToParsePath)

	err = binder.Path(nil)(withParam("1"), &req)
	assert.ErrorIs(t, err, binder.ErrFailedToParsePath)
}
