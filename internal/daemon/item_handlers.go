package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"rustactions/internal/events"
	"rustactions/internal/items"
	"rustactions/internal/recipes"
	"rustactions/internal/services"
)

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	store := s.daemon.deps.Items
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		list := store.List(items.Filter{Category: strings.TrimSpace(q.Get("category")), Query: q.Get("q")})
		s.writeSuccess(w, http.StatusOK, "list_items", fmt.Sprintf("%d items", len(list)), map[string]any{"items": list, "count": len(list)})
		return
	}

	var rec items.Record
	if err := decodeBody(r, &rec); err != nil {
		s.writeErr(w, r, err)
		return
	}
	created, err := store.Upsert(rec)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	stored, err := store.Get(rec.ItemID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	status, verb := http.StatusOK, "updated"
	if created {
		status, verb = http.StatusCreated, "created"
	}
	s.itemsChanged("upsert", stored.ItemID)
	s.writeSuccess(w, status, "upsert_item", fmt.Sprintf("item %s %s", stored.ItemID, verb), map[string]any{"item": stored, "created": created})
}

func (s *apiServer) handleItem(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete) {
		return
	}
	store := s.daemon.deps.Items
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		rec, err := store.Get(id)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		s.writeSuccess(w, http.StatusOK, "get_item", rec.Name, map[string]any{"item": rec})
	case http.MethodPut:
		if _, err := store.Get(id); err != nil {
			s.writeErr(w, r, err)
			return
		}
		var rec items.Record
		if err := decodeBody(r, &rec); err != nil {
			s.writeErr(w, r, err)
			return
		}
		if rec.ItemID == "" {
			rec.ItemID = id
		}
		if rec.ItemID != id {
			s.writeErr(w, r, services.Validation("api", "item_id in body does not match the path"))
			return
		}
		if _, err := store.Upsert(rec); err != nil {
			s.writeErr(w, r, err)
			return
		}
		stored, err := store.Get(id)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		s.itemsChanged("replace", id)
		s.writeSuccess(w, http.StatusOK, "replace_item", "item "+id+" replaced", map[string]any{"item": stored})
	case http.MethodPatch:
		var patch items.Patch
		if err := decodeBody(r, &patch); err != nil {
			s.writeErr(w, r, err)
			return
		}
		if patch.Empty() {
			s.writeErr(w, r, services.Validation("api", "patch changes nothing"))
			return
		}
		rec, err := store.Patch(id, patch)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		s.itemsChanged("patch", id)
		s.writeSuccess(w, http.StatusOK, "patch_item", "item "+id+" updated", map[string]any{"item": rec})
	case http.MethodDelete:
		removed, err := store.Delete(id)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		// Deleting an absent item is a no-op, so retried deletes succeed.
		if !removed {
			s.writeSuccess(w, http.StatusOK, "delete_item", "item "+id+" not present", map[string]any{"item_id": id, "deleted": false})
			return
		}
		s.itemsChanged("delete", id)
		s.writeSuccess(w, http.StatusOK, "delete_item", "item "+id+" deleted", map[string]any{"item_id": id, "deleted": true})
	}
}

// itemsChanged publishes an items event. Craft binds are rebuilt only on
// explicit generate or sync so that slot numbers stay stable while editing.
func (s *apiServer) itemsChanged(op, id string) {
	s.daemon.deps.Events.Publish(events.TypeItems, map[string]string{"op": op, "item_id": id})
}

func (s *apiServer) handleItemsByCategory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	category := r.PathValue("category")
	list := s.daemon.deps.Items.List(items.Filter{Category: category})
	s.writeSuccess(w, http.StatusOK, "list_items", fmt.Sprintf("%d items in %s", len(list), category), map[string]any{"items": list, "count": len(list), "category": category})
}

func (s *apiServer) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeErr(w, r, services.Validation("api", "q is required"))
		return
	}
	list := s.daemon.deps.Items.List(items.Filter{Query: q})
	s.writeSuccess(w, http.StatusOK, "search_items", fmt.Sprintf("%d matches", len(list)), map[string]any{"items": list, "count": len(list), "query": q})
}

func (s *apiServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	cats := s.daemon.deps.Items.Categories()
	s.writeSuccess(w, http.StatusOK, "list_categories", fmt.Sprintf("%d categories", len(cats)), map[string]any{"categories": cats})
}

func (s *apiServer) handleItemStats(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	store := s.daemon.deps.Items
	s.writeSuccess(w, http.StatusOK, "item_stats", "", map[string]any{"stats": store.Stats(), "metadata": store.Metadata()})
}

type mergeRequest struct {
	Recipes []recipes.Recipe `json:"recipes"`
	// Mapping is "source=item_id" pairs.
	Mapping []string `json:"mapping"`
}

// handleRecipeMerge merges the posted recipes, or the configured crafting
// data file when none are posted.
func (s *apiServer) handleRecipeMerge(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req mergeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	src := recipes.Source{Recipes: req.Recipes}
	if len(src.Recipes) == 0 {
		path := s.daemon.cfg.CraftingDataPath()
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			s.writeErr(w, r, services.Wrap(services.ErrNotFound, "api", "merge recipes", "no recipes posted and no crafting data at "+path, nil))
			return
		}
		loaded, err := recipes.LoadSource(path)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		src = loaded
	}
	report, err := s.daemon.MergeRecipes(src, recipes.ParseMapping(req.Mapping))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, "merge_recipes",
		fmt.Sprintf("%d matched, %d unmatched, %d updated", report.Matched, report.Unmatched, report.Updated),
		map[string]any{"report": report})
}
