package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"menulens/internal/currency"
	"menulens/internal/domain"
	"menulens/internal/imageproc"
	"menulens/internal/middleware"
	"menulens/internal/sqlinline"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadBytes caps menu photo uploads at 10 MiB.
const maxUploadBytes = 10 << 20

type uploadItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Section     string `json:"section,omitempty"`
}

type uploadResponse struct {
	MenuID      string       `json:"menu_id"`
	TaskID      string       `json:"task_id"`
	Status      string       `json:"status"`
	Currency    string       `json:"currency"`
	ItemCount   int          `json:"item_count"`
	Items       []uploadItem `json:"items"`
	ProgressURL string       `json:"progress_url"`
	EventsURL   string       `json:"events_url"`
}

// MenusUpload accepts a multipart menu photo, extracts its dishes, and
// kicks off image resolution in the background. The response carries the
// extracted items; images arrive via GET /v1/menus/{menu_id} once the
// task completes.
func (a *App) MenusUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "too_large", "file too large, maximum size is 10MB")
			return
		}
		a.error(w, r, http.StatusBadRequest, "bad_request", "multipart form required")
		return
	}
	file, header, err := r.FormFile("menu")
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "menu file field required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid file type, please upload an image")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		a.error(w, r, http.StatusBadRequest, "invalid_image", "file is not a valid image")
		return
	}

	optimized, err := imageproc.Optimize(data, 0)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "invalid_image", "could not decode image")
		return
	}

	menuID := uuid.NewString()
	sourceKey := fmt.Sprintf("menus/%s.jpg", menuID)
	if _, err := a.Objects.Put(r.Context(), sourceKey, optimized.Data, optimized.ContentType); err != nil {
		a.Logger.Error().Err(err).Str("menu_id", menuID).Msg("store menu photo")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to store menu photo")
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	country := middleware.CountryFromContext(r.Context())
	hintCurrency := middleware.CurrencyFromContext(r.Context())
	if hintCurrency == "" {
		hintCurrency = currency.DefaultCode
	}

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertMenu, menuID, string(domain.MenuStatusProcessing), sourceKey, hintCurrency, locale, 0); err != nil {
		a.Logger.Error().Err(err).Str("menu_id", menuID).Msg("insert menu")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to create menu record")
		return
	}

	extracted, err := a.Extractor.Extract(r.Context(), optimized.Data, optimized.ContentType)
	if err != nil {
		a.failMenu(r.Context(), menuID, "menu extraction failed")
		a.Logger.Error().Err(err).Str("menu_id", menuID).Msg("extract menu items")
		a.error(w, r, http.StatusBadGateway, "upstream", "failed to extract menu items")
		return
	}
	if len(extracted.Items) == 0 {
		a.failMenu(r.Context(), menuID, "no menu items found")
		a.error(w, r, http.StatusUnprocessableEntity, "unprocessable", "could not extract any menu items from the image")
		return
	}

	prices := make([]string, 0, len(extracted.Items))
	for _, it := range extracted.Items {
		if it.Price != "" {
			prices = append(prices, it.Price)
		}
	}
	menuCurrency := currency.Detect(extracted.CurrencyHints, prices, country)

	if _, err := a.SQL.Exec(r.Context(), sqlinline.QUpdateMenuExtraction, menuID, len(extracted.Items), menuCurrency); err != nil {
		a.Logger.Warn().Err(err).Str("menu_id", menuID).Msg("update menu extraction")
	}

	items := make([]uploadItem, 0, len(extracted.Items))
	requests := make([]domain.MenuItemRequest, 0, len(extracted.Items))
	for i, it := range extracted.Items {
		itemID := uuid.NewString()
		if _, err := a.SQL.Exec(r.Context(), sqlinline.QInsertMenuItem, itemID, menuID, it.Name, it.Description, it.Price, it.Section, i); err != nil {
			a.Logger.Warn().Err(err).Str("menu_id", menuID).Str("name", it.Name).Msg("insert menu item")
			continue
		}
		items = append(items, uploadItem{
			ID:          itemID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Section:     it.Section,
		})
		requests = append(requests, domain.MenuItemRequest{ID: itemID, Name: it.Name, Description: it.Description})
	}
	if len(requests) == 0 {
		a.failMenu(r.Context(), menuID, "failed to persist menu items")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to save menu items")
		return
	}

	a.Tracker.Start(menuID, len(requests))
	a.Tracker.Update(menuID, "menu_saved", 40, map[string]any{"items": len(requests)})

	go a.resolveMenu(context.WithoutCancel(r.Context()), menuID, requests)

	a.json(w, http.StatusAccepted, uploadResponse{
		MenuID:      menuID,
		TaskID:      menuID,
		Status:      string(domain.MenuStatusProcessing),
		Currency:    menuCurrency,
		ItemCount:   len(items),
		Items:       items,
		ProgressURL: fmt.Sprintf("/v1/menus/%s/progress", menuID),
		EventsURL:   fmt.Sprintf("/v1/menus/%s/events", menuID),
	})
}

// resolveMenu runs the image resolution pipeline for one menu and
// persists the outcome. It owns the task's terminal tracker state.
func (a *App) resolveMenu(ctx context.Context, menuID string, items []domain.MenuItemRequest) {
	started := time.Now()
	resolved := a.Resolver.ResolveImages(ctx, menuID, items)

	var persistErr error
	for _, item := range items {
		for pos, cand := range resolved[item.ID] {
			_, err := a.SQL.Exec(ctx, sqlinline.QInsertMenuItemImage,
				item.ID, cand.URL, cand.ThumbnailURL, string(cand.Source), cand.Title,
				cand.Width, cand.Height, cand.Score, pos)
			if err != nil {
				a.Logger.Warn().Err(err).Str("menu_id", menuID).Str("item_id", item.ID).Msg("insert item image")
				persistErr = err
			}
		}
	}

	status := domain.MenuStatusCompleted
	taskErr := persistErr
	var errMsg *string
	if ctxErr := ctx.Err(); ctxErr != nil {
		taskErr = ctxErr
		status = domain.MenuStatusFailed
		msg := "resolution interrupted"
		errMsg = &msg
	} else if persistErr != nil {
		status = domain.MenuStatusFailed
		msg := "failed to save resolved images"
		errMsg = &msg
	}
	if _, err := a.SQL.Exec(ctx, sqlinline.QUpdateMenuStatus, menuID, string(status), len(items), errMsg); err != nil {
		a.Logger.Error().Err(err).Str("menu_id", menuID).Msg("update menu status")
	}
	a.Tracker.Complete(menuID, taskErr)

	a.Logger.Info().
		Str("menu_id", menuID).
		Int("items", len(items)).
		Dur("took", time.Since(started)).
		Str("status", string(status)).
		Msg("menu resolution finished")
}

func (a *App) failMenu(ctx context.Context, menuID, reason string) {
	if _, err := a.SQL.Exec(ctx, sqlinline.QUpdateMenuStatus, menuID, string(domain.MenuStatusFailed), nil, reason); err != nil {
		a.Logger.Warn().Err(err).Str("menu_id", menuID).Msg("mark menu failed")
	}
}

type menuItemResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Price       string                  `json:"price,omitempty"`
	Section     string                  `json:"section,omitempty"`
	Position    int                     `json:"position"`
	Images      []domain.ImageCandidate `json:"images"`
}

type menuResponse struct {
	ID             string             `json:"id"`
	Status         string             `json:"status"`
	Currency       string             `json:"currency"`
	Locale         string             `json:"locale"`
	ItemCount      int                `json:"item_count"`
	Error          string             `json:"error,omitempty"`
	SourceImageURL string             `json:"source_image_url,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Items          []menuItemResponse `json:"items"`
}

// MenusGet returns a persisted menu with its items and resolved images.
func (a *App) MenusGet(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menu_id")
	if menuID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "menu_id required")
		return
	}

	menu, err := a.loadMenu(r.Context(), menuID)
	if err != nil {
		a.error(w, r, http.StatusNotFound, "not_found", "menu not found")
		return
	}

	items, err := a.loadMenuItems(r.Context(), menuID)
	if err != nil {
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to load menu items")
		return
	}
	images := a.loadItemImages(r.Context(), menuID)

	resp := menuResponse{
		ID:          menu.ID,
		Status:      string(menu.Status),
		Currency:    menu.Currency,
		Locale:      menu.Locale,
		ItemCount:   menu.ItemCount,
		Error:       menu.Error,
		CreatedAt:   menu.CreatedAt,
		CompletedAt: menu.CompletedAt,
		Items:       make([]menuItemResponse, 0, len(items)),
	}
	if menu.SourceKey != "" {
		resp.SourceImageURL = a.Objects.PublicURL(menu.SourceKey)
	}
	for _, it := range items {
		imgs := images[it.ID]
		if imgs == nil {
			imgs = []domain.ImageCandidate{}
		}
		resp.Items = append(resp.Items, menuItemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Section:     it.Section,
			Position:    it.Position,
			Images:      imgs,
		})
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) loadMenu(ctx context.Context, menuID string) (domain.Menu, error) {
	var m domain.Menu
	var status string
	err := a.SQL.QueryRow(ctx, sqlinline.QSelectMenu, menuID).Scan(
		&m.ID, &status, &m.SourceKey, &m.Currency, &m.Locale, &m.ItemCount, &m.Error, &m.CreatedAt, &m.CompletedAt)
	if err != nil {
		return domain.Menu{}, err
	}
	m.Status = domain.MenuStatus(status)
	return m, nil
}

func (a *App) loadMenuItems(ctx context.Context, menuID string) ([]domain.MenuItem, error) {
	rows, err := a.SQL.Query(ctx, sqlinline.QSelectMenuItems, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.MenuItem
	for rows.Next() {
		var it domain.MenuItem
		if err := rows.Scan(&it.ID, &it.MenuID, &it.Name, &it.Description, &it.Price, &it.Section, &it.Position, &it.CreatedAt); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (a *App) loadItemImages(ctx context.Context, menuID string) map[string][]domain.ImageCandidate {
	images := map[string][]domain.ImageCandidate{}
	rows, err := a.SQL.Query(ctx, sqlinline.QSelectMenuItemImages, menuID)
	if err != nil {
		a.Logger.Warn().Err(err).Str("menu_id", menuID).Msg("load item images")
		return images
	}
	defer rows.Close()
	for rows.Next() {
		var itemID, source string
		var cand domain.ImageCandidate
		if err := rows.Scan(&itemID, &cand.URL, &cand.ThumbnailURL, &source, &cand.Title, &cand.Width, &cand.Height, &cand.Score); err != nil {
			continue
		}
		cand.Source = domain.ImageSource(source)
		images[itemID] = append(images[itemID], cand)
	}
	return images
}
