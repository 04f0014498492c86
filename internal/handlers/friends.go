package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

type FriendRequestBody struct {
	Username string `json:"username"`
}

type AcceptFriendBody struct {
	UserID string `json:"userId"`
}

// SendFriendRequest files a pending request on the target account. If only
// one side of the friendship is recorded, the missing side is linked instead.
func (h *Handler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req FriendRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		h.writeError(w, r, apierr.BadRequest("Username is required", nil))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	target, err := h.store.FindByUsername(ctx, username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if target.ID == acct.ID {
		h.writeError(w, r, apierr.BadRequest("Cannot send a friend request to yourself", nil))
		return
	}

	senderLinked, targetLinked := acct.HasFriend(target.ID), target.HasFriend(acct.ID)
	switch {
	case senderLinked && targetLinked:
		h.writeError(w, r, apierr.BadRequest("Already friends", nil))
		return
	case senderLinked || targetLinked:
		owner, friend := acct.ID, target.ID
		if senderLinked {
			owner, friend = target.ID, acct.ID
		}
		if err := h.linkFriend(ctx, owner, friend); err != nil {
			h.writeError(w, r, err)
			return
		}
		h.log.Info("friend link repaired", "accountId", owner.Hex(), "friendId", friend.Hex())
		writeJSON(w, http.StatusOK, envelope{"message": "Friend request accepted"})
		return
	}

	_, err = h.progression.Apply(ctx, target.ID, services.EventFriends, func(a *models.Account) (bool, error) {
		if !a.HasFriendRequest(acct.ID) && !a.HasFriend(acct.ID) {
			a.FriendRequests = append(a.FriendRequests, acct.ID)
		}
		return false, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Friend request sent"})
}

// AcceptFriendRequest turns a pending request into a mutual friendship.
// The two accounts are saved separately; a half-applied link is completed by
// either side sending a friend request.
func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req AcceptFriendBody
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	requesterID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.UserID))
	if err != nil {
		h.writeError(w, r, apierr.BadRequest("Invalid user ID", err))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if _, err := h.store.Load(ctx, requesterID); err != nil {
		h.writeError(w, r, err)
		return
	}

	errNoRequest := apierr.BadRequest("No pending friend request from this user", nil)
	updated, err := h.progression.Apply(ctx, acct.ID, services.EventFriends, func(a *models.Account) (bool, error) {
		if !a.HasFriendRequest(requesterID) {
			return false, errNoRequest
		}
		a.FriendRequests = removeID(a.FriendRequests, requesterID)
		if !a.HasFriend(requesterID) {
			a.Friends = append(a.Friends, requesterID)
		}
		return false, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.linkFriend(ctx, requesterID, acct.ID); err != nil {
		h.log.Warn("friend link half applied", "accountId", acct.ID.Hex(), "friendId", requesterID.Hex(), "error", err)
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Friend request accepted", "user": updated})
}

// ListFriends returns public profiles of the caller's friends
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	friends := make([]models.PublicProfile, 0, len(acct.Friends))
	for _, id := range acct.Friends {
		f, err := h.store.Load(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		friends = append(friends, f.Public())
	}
	writeJSON(w, http.StatusOK, envelope{"friends": friends})
}

// linkFriend adds friendID to owner's friends and drops any pending request
// between the two from owner's side.
func (h *Handler) linkFriend(ctx context.Context, ownerID, friendID primitive.ObjectID) error {
	_, err := h.progression.Apply(ctx, ownerID, services.EventFriends, func(a *models.Account) (bool, error) {
		a.FriendRequests = removeID(a.FriendRequests, friendID)
		if !a.HasFriend(friendID) {
			a.Friends = append(a.Friends, friendID)
		}
		return false, nil
	})
	return err
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
