package handlers

import (
	"net/http"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
)

type PurchaseRequest struct {
	ItemID int `json:"itemId"`
}

// ListShop returns every shop item
func (h *Handler) ListShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"shopItems": h.catalog.Items()})
}

func (h *Handler) ShopCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"categories": h.catalog.ShopCategories()})
}

func (h *Handler) PopularItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"popularItems": h.catalog.PopularItems()})
}

// PurchaseHistory is always empty; purchases are not recorded.
func (h *Handler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"purchaseHistory": []interface{}{}})
}

// Purchase spends coins on an item and hands out its reward
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ItemID == 0 {
		h.writeError(w, r, apierr.BadRequest("Item ID is required", nil))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, out, err := h.progression.Purchase(ctx, acct.ID, req.ItemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("item purchased", "accountId", acct.ID.Hex(), "itemId", out.Item.ID, "coins", out.Item.Coins)
	writeJSON(w, http.StatusOK, envelope{
		"message": "Purchase successful",
		"item": envelope{
			"id":         out.Item.ID,
			"title":      out.Item.Title,
			"coinsSpent": out.Item.Coins,
		},
		"reward":     out.Reward,
		"newBalance": updated.Coins,
	})
}
