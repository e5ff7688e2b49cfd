// internal/app/features/messages/support.go
package messages

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/authz"
	"github.com/arabeuna/aramove/internal/app/system/inputval"
	"github.com/arabeuna/aramove/internal/app/system/jsonio"
	"github.com/arabeuna/aramove/internal/app/system/timeouts"
	"github.com/arabeuna/aramove/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type replyInput struct {
	UserID  string `json:"userId" validate:"required,objectid" label:"User"`
	Content string `json:"content"`
}

// ServeSupportThread handles GET /messages/support: the caller's support
// thread, oldest first. Opening it marks admin replies as read.
func (h *Handler) ServeSupportThread(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.writeThread(ctx, w, r, uid, func() (int64, error) {
		return h.Messages.MarkSupportReadFor(ctx, uid)
	})
}

// HandleSupportSend handles POST /messages/support. The message is
// addressed to the first admin account.
func (h *Handler) HandleSupportSend(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	var in contentInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	content, err := cleanContent(in.Content)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	admin, err := h.Users.FirstAdmin(ctx)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("support"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	msg, err := h.Messages.Create(ctx, models.Message{
		Sender:      uid,
		Receiver:    admin.ID,
		Content:     content,
		SupportChat: true,
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.created(ctx, w, r, msg)
}

// ServeConversations handles GET /messages/support/conversations (admin).
func (h *Handler) ServeConversations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Messages.SupportConversations(ctx)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	jsonio.OK(w, list)
}

// ServeUserThread handles GET /messages/support/user/{userID} (admin).
// Opening it marks the user's messages as read.
func (h *Handler) ServeUserThread(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.NotFound("user"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	h.writeThread(ctx, w, r, userID, func() (int64, error) {
		return h.Messages.MarkSupportReadFrom(ctx, userID)
	})
}

// writeThread answers with user's support thread, then applies markRead.
// The response holds the messages as they were before marking.
func (h *Handler) writeThread(ctx context.Context, w http.ResponseWriter, r *http.Request, user primitive.ObjectID, markRead func() (int64, error)) {
	msgs, err := h.Messages.SupportThread(ctx, user)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	views, err := h.views(ctx, msgs)
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	if _, err := markRead(); err != nil {
		h.Log.Warn("support mark read", zap.String("user_id", user.Hex()), zap.Error(err))
	}
	jsonio.OK(w, views)
}

// HandleSupportReply handles POST /messages/support/reply (admin).
func (h *Handler) HandleSupportReply(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		jsonio.Error(w, r, h.Log, apierr.Unauthorized(""))
		return
	}
	var in replyInput
	if err := jsonio.Decode(w, r, &in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	if err := inputval.Check(in); err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	content, err := cleanContent(in.Content)
	if err != nil {
		jsonio.Error(w, r, h.Log, err)
		return
	}
	target, _ := primitive.ObjectIDFromHex(in.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, target)
	if errors.Is(err, userstore.ErrNotFound) {
		jsonio.Error(w, r, h.Log, apierr.NotFound("user"))
		return
	}
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}

	msg, err := h.Messages.Create(ctx, models.Message{
		Sender:      uid,
		Receiver:    u.ID,
		Content:     content,
		SupportChat: true,
	})
	if err != nil {
		jsonio.Error(w, r, h.Log, apierr.Internal(err))
		return
	}
	h.created(ctx, w, r, msg)
}
