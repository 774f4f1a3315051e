package export

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/typeid"
)

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestRender_FitsShapes(t *testing.T) {
	doc := document.NewSampleDocument("doc1")
	img, err := Render(doc.Pages[doc.CurrentPageID], Options{Scale: 1, Padding: 10})
	require.NoError(t, err)

	// The sample shapes span [0,0]-[200,200].
	assert.Equal(t, 220, img.Bounds().Dx())
	assert.Equal(t, 220, img.Bounds().Dy())
	assert.True(t, isWhite(img.At(2, 2)), "padding is background")
	assert.True(t, isWhite(img.At(15, 15)), "shapes are not filled")
	assert.False(t, isWhite(img.At(10, 50)), "left edge of rect1 is stroked")
}

func TestRender_Scale(t *testing.T) {
	doc := document.NewSampleDocument("doc1")
	img, err := Render(doc.Pages[doc.CurrentPageID], Options{Scale: 2, Padding: 0})
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
}

func TestRender_EmptyPage(t *testing.T) {
	_, err := Render(document.NewPage("p", "Empty"), DefaultOptions())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHandler_ExportPNG(t *testing.T) {
	boardID := typeid.NewBoardID()
	h := NewHandler(func(_ context.Context, id string) (*document.Document, error) {
		if id != boardID {
			return nil, store.ErrNotFound
		}
		return document.NewSampleDocument(id), nil
	})

	get := func(id, query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/boards/"+id+"/export.png"+query, nil)
		req = mux.SetURLVars(req, map[string]string{"boardId": id})
		rec := httptest.NewRecorder()
		h.ExportPNG(rec, req)
		return rec
	}

	rec := get(boardID, "?scale=0.5&padding=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	assert.Equal(t, http.StatusBadRequest, get(boardID, "?scale=100").Code)
	assert.Equal(t, http.StatusBadRequest, get("nope", "").Code)
	assert.Equal(t, http.StatusNotFound, get(typeid.NewBoardID(), "").Code)
	assert.Equal(t, http.StatusNotFound, get(boardID, "?page=missing").Code)
}

func TestHandler_SourceError(t *testing.T) {
	h := NewHandler(func(context.Context, string) (*document.Document, error) {
		return nil, errors.New("db down")
	})
	id := typeid.NewBoardID()
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"boardId": id})
	rec := httptest.NewRecorder()
	h.ExportPNG(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
