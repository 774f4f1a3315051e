package export

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/whiteboard/internal/document"
	"github.com/inamate/whiteboard/internal/store"
	"github.com/inamate/whiteboard/internal/validation"
)

// Source returns the current document of a board.
type Source func(ctx context.Context, boardID string) (*document.Document, error)

type Handler struct {
	source Source
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

type pngQuery struct {
	BoardID string  `json:"boardId" validate:"required,boardid"`
	Page    string  `json:"page" validate:"omitempty,max=64"`
	Scale   float64 `json:"scale" validate:"gt=0,lte=8"`
	Padding float64 `json:"padding" validate:"gte=0,lte=512"`
}

// ExportPNG renders a page of a board as a PNG image. Query parameters:
// page (defaults to the current page), scale, padding and labels.
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := DefaultOptions()
	req := pngQuery{
		BoardID: mux.Vars(r)["boardId"],
		Page:    q.Get("page"),
		Scale:   opts.Scale,
		Padding: opts.Padding,
	}
	if v := q.Get("scale"); v != "" {
		req.Scale, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("padding"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			req.Padding = p
		} else {
			req.Padding = -1
		}
	}
	if err := validation.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts.Scale = req.Scale
	opts.Padding = req.Padding
	opts.Labels = q.Get("labels") != "false"

	doc, err := h.source(r.Context(), req.BoardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
		slog.Error("load board for export", "board", req.BoardID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	pageID := req.Page
	if pageID == "" {
		pageID = doc.CurrentPageID
	}
	page, ok := doc.Pages[pageID]
	if !ok {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, page, opts); err != nil {
		if errors.Is(err, ErrEmpty) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		slog.Error("render png", "board", req.BoardID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", `inline; filename="`+req.BoardID+`.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())

	slog.Info("export complete", "board", req.BoardID, "page", pageID, "size", buf.Len())
}
