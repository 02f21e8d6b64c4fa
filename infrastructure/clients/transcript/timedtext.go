package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"vocab-bot/domain/model"
	"vocab-bot/infrastructure/logger"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// transcript is one caption track bound to the client it was listed with.
type transcript struct {
	provider  *Provider
	client    *http.Client
	url       string
	lang      string
	generated bool
}

func (t *transcript) LanguageCode() string { return t.lang }
func (t *transcript) IsGenerated() bool    { return t.generated }

func (t *transcript) Fetch(ctx context.Context) ([]model.TranscriptEntry, error) {
	body, err := t.provider.get(ctx, t.client, t.url)
	if err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return parseTimedText(body)
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// parseTimedText decodes the timedtext XML format. Empty lines and lines
// without a numeric start are dropped.
func parseTimedText(body []byte) ([]model.TranscriptEntry, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode timedtext: %w", err)
	}

	entries := make([]model.TranscriptEntry, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := strings.TrimSpace(tagPattern.ReplaceAllString(html.UnescapeString(t.Body), ""))
		if text == "" {
			continue
		}
		start, err := strconv.ParseFloat(t.Start, 64)
		if err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"start": t.Start,
				"error": err,
			}).Warn("Skipping caption line with invalid start")
			continue
		}
		var dur float64
		if t.Dur != "" {
			if dur, err = strconv.ParseFloat(t.Dur, 64); err != nil {
				logger.GetLogger().WithFields(map[string]interface{}{
					"dur":   t.Dur,
					"error": err,
				}).Warn("Ignoring invalid caption duration")
				dur = 0
			}
		}
		entries = append(entries, model.TranscriptEntry{Text: text, Start: start, Duration: dur})
	}
	return entries, nil
}
