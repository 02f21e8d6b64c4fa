package model

import (
	"fmt"
	"strings"
)

// FieldYouTubeLink is the hash field holding the resolved link or a sentinel.
const FieldYouTubeLink = "youtube_link"

// Cache sentinels. They are outcomes, distinct from an absent entry.
const (
	SentinelNotFound = "video not found"
	SentinelError    = "error"
)

type OutcomeStatus string

const (
	StatusResolved OutcomeStatus = "resolved"
	StatusNotFound OutcomeStatus = "not_found"
	StatusError    OutcomeStatus = "error"
	// StatusTimeout is produced only by a waiting caller and is never cached.
	StatusTimeout OutcomeStatus = "timeout"
)

const (
	messageResolved = "Videos found with this word: %s"
	messageNotFound = "video not found."
	messageError    = "video search is currently unavailable, please try again later"
	messageTimeout  = "The server timed out waiting for a response, please try again later."
)

// LinkOutcome is the terminal result of one resolution attempt.
type LinkOutcome struct {
	Status OutcomeStatus `json:"status"`
	Link   string        `json:"link,omitempty"`
}

func Resolved(link string) LinkOutcome { return LinkOutcome{Status: StatusResolved, Link: link} }
func NotFound() LinkOutcome            { return LinkOutcome{Status: StatusNotFound} }
func Failed() LinkOutcome              { return LinkOutcome{Status: StatusError} }
func TimedOut() LinkOutcome            { return LinkOutcome{Status: StatusTimeout} }

// CacheValue is what gets stored under FieldYouTubeLink. Timeouts have no
// cache form and return "".
func (o LinkOutcome) CacheValue() string {
	switch o.Status {
	case StatusResolved:
		return o.Link
	case StatusNotFound:
		return SentinelNotFound
	case StatusError:
		return SentinelError
	}
	return ""
}

// Retriable reports whether a fresh request should run the pipeline again.
func (o LinkOutcome) Retriable() bool {
	return o.Status != StatusResolved
}

// Message is the user-facing text for the outcome.
func (o LinkOutcome) Message() string {
	switch o.Status {
	case StatusResolved:
		return fmt.Sprintf(messageResolved, o.Link)
	case StatusNotFound:
		return messageNotFound
	case StatusTimeout:
		return messageTimeout
	}
	return messageError
}

// OutcomeFromCache decodes a stored value.
func OutcomeFromCache(value string) LinkOutcome {
	switch value {
	case SentinelNotFound:
		return NotFound()
	case SentinelError, "":
		return Failed()
	}
	return Resolved(value)
}

// LinkKey identifies one (chat, word, language) request.
type LinkKey struct {
	ChatID int64  `json:"chat_id"`
	Word   string `json:"word"`
	Lang   string `json:"lang"`
}

// String renders the composite cache key "{chat}:{word}:{lang}".
func (k LinkKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.ChatID, k.Word, k.Lang)
}

// Normalize trims the word and lowercases the language code.
func (k LinkKey) Normalize() LinkKey {
	return LinkKey{
		ChatID: k.ChatID,
		Word:   strings.TrimSpace(k.Word),
		Lang:   strings.ToLower(strings.TrimSpace(k.Lang)),
	}
}
