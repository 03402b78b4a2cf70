package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"menulens/internal/foodname"
	"menulens/pkg/zip"

	"github.com/go-chi/chi/v5"
)

// MenusExport streams a zip archive of the menu's dish images that
// live in our object store. Externally hosted results (search hits,
// placeholders) are not included.
func (a *App) MenusExport(w http.ResponseWriter, r *http.Request) {
	menuID := chi.URLParam(r, "menu_id")
	if menuID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "menu_id required")
		return
	}
	if _, err := a.loadMenu(r.Context(), menuID); err != nil {
		a.error(w, r, http.StatusNotFound, "not_found", "menu not found")
		return
	}

	items, err := a.loadMenuItems(r.Context(), menuID)
	if err != nil {
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to load menu items")
		return
	}
	images := a.loadItemImages(r.Context(), menuID)

	var assets []zip.Asset
	for _, it := range items {
		for _, cand := range images[it.ID] {
			key := a.storageKeyFromURL(cand.URL)
			if key == "" {
				continue
			}
			data, err := a.Objects.ReadAll(r.Context(), key)
			if err != nil {
				a.Logger.Warn().Err(err).Str("key", key).Msg("read stored image")
				continue
			}
			assets = append(assets, zip.Asset{
				Filename: fmt.Sprintf("%02d_%s.jpg", it.Position+1, foodname.Slug(it.Name)),
				MIME:     "image/jpeg",
				Data:     data,
			})
			break
		}
	}
	if len(assets) == 0 {
		a.error(w, r, http.StatusNotFound, "not_found", "no stored images for this menu")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=menu-%s.zip", menuID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// storageKeyFromURL maps a public URL back to its object store key.
// Returns "" for URLs served elsewhere.
func (a *App) storageKeyFromURL(url string) string {
	base := strings.TrimRight(a.Config.StorageBaseURL, "/")
	if base == "" || !strings.HasPrefix(url, base+"/") {
		return ""
	}
	return strings.TrimPrefix(url, base+"/")
}
