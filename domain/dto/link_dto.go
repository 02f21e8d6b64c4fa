package dto

import (
	"time"

	"vocab-bot/domain/model"
)

// LinkRequest asks for a video link for a word in a language.
// ChatID is taken from the bearer token when the body leaves it empty.
type LinkRequest struct {
	ChatID int64  `json:"chat_id" form:"chat_id"`
	Word   string `json:"word" form:"word" binding:"required"`
	Lang   string `json:"lang" form:"lang" binding:"required"`
}

func (r LinkRequest) Key() model.LinkKey {
	return model.LinkKey{ChatID: r.ChatID, Word: r.Word, Lang: r.Lang}.Normalize()
}

// LinkResponse reports an outcome together with its user-facing message.
type LinkResponse struct {
	ChatID  int64               `json:"chat_id"`
	Word    string              `json:"word"`
	Lang    string              `json:"lang"`
	Status  model.OutcomeStatus `json:"status"`
	Link    string              `json:"link,omitempty"`
	Message string              `json:"message"`
	Cached  bool                `json:"cached"`
}

func NewLinkResponse(key model.LinkKey, outcome model.LinkOutcome, cached bool) LinkResponse {
	return LinkResponse{
		ChatID:  key.ChatID,
		Word:    key.Word,
		Lang:    key.Lang,
		Status:  outcome.Status,
		Link:    outcome.Link,
		Message: outcome.Message(),
		Cached:  cached,
	}
}

// EnqueueResponse tells whether a background resolve was scheduled.
type EnqueueResponse struct {
	Key      string `json:"key"`
	Enqueued bool   `json:"enqueued"`
}

// LinkOutcomeEvent is published once an attempt finishes.
type LinkOutcomeEvent struct {
	ChatID     int64               `json:"chat_id"`
	Word       string              `json:"word"`
	Lang       string              `json:"lang"`
	Status     model.OutcomeStatus `json:"status"`
	Link       string              `json:"link,omitempty"`
	Message    string              `json:"message"`
	ResolvedAt time.Time           `json:"resolved_at"`
}
