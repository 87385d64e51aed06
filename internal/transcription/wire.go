package transcription

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"ai-meeting-copilot/internal/models"
)

// Provider control message types.
const (
	msgKeepAlive   = "KeepAlive"
	msgCloseStream = "CloseStream"
	msgResults     = "Results"
	msgMetadata    = "Metadata"
)

// controlMessage is the small JSON keepalive/end-of-stream frame.
type controlMessage struct {
	Type string `json:"type"`
}

func keepAliveFrame() []byte {
	b, _ := json.Marshal(controlMessage{Type: msgKeepAlive})
	return b
}

func closeStreamFrame() []byte {
	b, _ := json.Marshal(controlMessage{Type: msgCloseStream})
	return b
}

// streamURL builds the connection URL carrying model and feature
// negotiation: diarization on, punctuation on, partial results on.
func streamURL(base, model, language string, sampleRateHz int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse recognition url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	q.Set("language", language)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRateHz))
	q.Set("channels", "1")
	q.Set("diarize", "true")
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// wireWord is one recognized word in a provider result.
type wireWord struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Speaker        *int    `json:"speaker,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// resultMessage is an inbound provider result frame.
type resultMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string     `json:"transcript"`
			Words      []wireWord `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult converts a provider frame into a canonical transcript event.
// A nil event with empty=true marks voice activity without usable text;
// those are tracked but never emitted. A nil event with empty=false is a
// non-result frame (metadata, keepalive echo).
func parseResult(data []byte, channel models.Channel) (ev *models.TranscriptEvent, empty bool, err error) {
	var msg resultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, fmt.Errorf("decode provider frame: %w", err)
	}

	if msg.Type != msgResults && msg.Type != "" {
		return nil, false, nil
	}
	if len(msg.Channel.Alternatives) == 0 {
		return nil, false, nil
	}

	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil, true, nil
	}

	ev = &models.TranscriptEvent{
		Text:    alt.Transcript,
		IsFinal: msg.IsFinal,
		Channel: channel,
	}
	for _, w := range alt.Words {
		word := w.PunctuatedWord
		if word == "" {
			word = w.Word
		}
		ev.Words = append(ev.Words, models.Word{Word: word, Speaker: w.Speaker})
	}
	ev.SpeakerTag = majoritySpeaker(ev.Words)
	return ev, false, nil
}

// majoritySpeaker returns the speaker tag carried by the most words of the
// utterance. Ties break toward the speaker seen first.
func majoritySpeaker(words []models.Word) *int {
	counts := map[int]int{}
	var order []int
	for _, w := range words {
		if w.Speaker == nil {
			continue
		}
		if _, seen := counts[*w.Speaker]; !seen {
			order = append(order, *w.Speaker)
		}
		counts[*w.Speaker]++
	}
	if len(order) == 0 {
		return nil
	}

	best := order[0]
	for _, tag := range order[1:] {
		if counts[tag] > counts[best] {
			best = tag
		}
	}
	return &best
}
