package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/meimei/internal/meimei"
)

// CatalogEntry is a location as clients see it: no coordinates, so the
// answer cannot be read off the wire.
type CatalogEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Hint   string `json:"hint"`
	Image  string `json:"image,omitempty"`
}

func catalogEntry(l meimei.Location) CatalogEntry {
	return CatalogEntry{
		ID:     l.ID,
		Name:   l.Name,
		Region: l.Region,
		Hint:   l.HintText,
		Image:  l.ImageRef,
	}
}

type LocationLister interface {
	List(p meimei.Projection) ([]meimei.Location, error)
}

func handleCatalog(cat LocationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := meimei.ParseProjection(chi.URLParam(r, "projection"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		locs, err := cat.List(p)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		entries := make([]CatalogEntry, 0, len(locs))
		for _, l := range locs {
			entries = append(entries, catalogEntry(l))
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
