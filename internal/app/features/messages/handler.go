// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"fmt"
	"unicode/utf8"

	messagestore "github.com/arabeuna/aramove/internal/app/store/messages"
	ridestore "github.com/arabeuna/aramove/internal/app/store/rides"
	userstore "github.com/arabeuna/aramove/internal/app/store/users"
	"github.com/arabeuna/aramove/internal/app/system/apierr"
	"github.com/arabeuna/aramove/internal/app/system/htmlsanitize"
	"github.com/arabeuna/aramove/internal/app/system/limits"
	"github.com/arabeuna/aramove/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxContentRunes bounds a chat message after sanitizing.
const MaxContentRunes = limits.MaxChatRunes

// Handler serves ride chat and support chat.
type Handler struct {
	Messages *messagestore.Store
	Rides    *ridestore.Store
	Users    *userstore.Store
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Messages: messagestore.New(db),
		Rides:    ridestore.New(db),
		Users:    userstore.New(db),
		Log:      logger,
	}
}

// MessageView is a message with sender and receiver names attached.
type MessageView struct {
	models.Message
	SenderInfo   *models.UserSummary `json:"senderInfo,omitempty"`
	ReceiverInfo *models.UserSummary `json:"receiverInfo,omitempty"`
}

type contentInput struct {
	Content string `json:"content"`
}

// cleanContent strips markup and enforces the length bounds.
func cleanContent(raw string) (string, error) {
	s := htmlsanitize.PlainText(raw)
	switch n := utf8.RuneCountInString(s); {
	case n == 0:
		return "", apierr.Validation(map[string]string{"content": "Message is required."})
	case n > MaxContentRunes:
		return "", apierr.Validation(map[string]string{"content": fmt.Sprintf("Message must be at most %d characters.", MaxContentRunes)})
	}
	return s, nil
}

func (h *Handler) views(ctx context.Context, msgs []models.Message) ([]MessageView, error) {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0, 2)
	for _, m := range msgs {
		for _, id := range []primitive.ObjectID{m.Sender, m.Receiver} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sums, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{Message: m}
		if s, ok := sums[m.Sender]; ok {
			v.SenderInfo = nameOnly(s)
		}
		if s, ok := sums[m.Receiver]; ok {
			v.ReceiverInfo = nameOnly(s)
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, m models.Message) (MessageView, error) {
	vs, err := h.views(ctx, []models.Message{m})
	if err != nil {
		return MessageView{}, err
	}
	return vs[0], nil
}

func nameOnly(s models.UserSummary) *models.UserSummary {
	return &models.UserSummary{ID: s.ID, Name: s.Name, Role: s.Role}
}
