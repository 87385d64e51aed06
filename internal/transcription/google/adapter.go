// Package google provides the alternate recognition backend on Google
// Cloud Speech-to-Text streaming. It implements transcription.Streamer so
// sessions can switch providers by configuration.
package google

import (
	"context"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/transcription"
)

// Adapter implements transcription.Streamer using Google Cloud
// Speech-to-Text. Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type Adapter struct {
	client       *speech.Client
	cb           transcription.Callback
	sampleRateHz int32

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id      string
	channel models.Channel
	stream  speechpb.Speech_StreamingRecognizeClient
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a new Google recognition adapter.
func New(ctx context.Context, sampleRateHz int, cb transcription.Callback) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:       c,
		cb:           cb,
		sampleRateHz: int32(sampleRateHz),
		sessions:     make(map[string]*session),
	}, nil
}

// StartSession begins a streaming recognition session and sends the initial
// config: diarization on, punctuation on, interim results on.
func (a *Adapter) StartSession(ctx context.Context, id string, channel models.Channel, language string) error {
	a.mu.Lock()
	existing := a.sessions[id]
	a.mu.Unlock()
	if existing != nil {
		_ = a.StopSession(ctx, id)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := a.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("open google recognition stream %s: %w", id, err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            a.sampleRateHz,
					LanguageCode:               language,
					EnableAutomaticPunctuation: true,
					DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
						EnableSpeakerDiarization: true,
					},
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("send google recognition config %s: %w", id, err)
	}

	s := &session{
		id:      id,
		channel: channel,
		stream:  stream,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	a.mu.Lock()
	a.sessions[id] = s
	a.mu.Unlock()

	go a.listen(s)
	return nil
}

// SendAudioChunk forwards audio bytes to Google. Fire-and-forget; chunks
// for unknown or closed sessions are dropped.
func (a *Adapter) SendAudioChunk(id string, data []byte) {
	a.mu.Lock()
	s := a.sessions[id]
	a.mu.Unlock()
	if s == nil {
		return
	}

	err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	})
	if err != nil {
		log := logging.WithChannel(id, string(s.channel))
		log.Debug().Err(err).Msg("Dropping audio chunk: google send failed")
	}
}

// StopSession half-closes the stream and waits for trailing results.
func (a *Adapter) StopSession(ctx context.Context, id string) error {
	a.mu.Lock()
	s := a.sessions[id]
	delete(a.sessions, id)
	a.mu.Unlock()
	if s == nil {
		return nil
	}

	_ = s.stream.CloseSend()
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	s.cancel()
	return nil
}

// StopAll stops every live session.
func (a *Adapter) StopAll(ctx context.Context) {
	a.mu.Lock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		_ = a.StopSession(ctx, id)
	}
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	a.StopAll(context.Background())
	return a.client.Close()
}

// listen receives recognition responses and converts them into canonical
// transcript events.
func (a *Adapter) listen(s *session) {
	defer close(s.done)
	log := logging.WithStream(s.id, string(s.channel), "google")

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			a.mu.Lock()
			current := a.sessions[s.id] == s
			if current {
				delete(a.sessions, s.id)
			}
			a.mu.Unlock()
			if !current {
				// Session was stopped; the error is just the stream winding down.
				return
			}
			switch status.Code(err) {
			case codes.Unauthenticated, codes.PermissionDenied:
				a.cb.OnStreamError(s.id, s.channel, fmt.Errorf("%w: %v", transcription.ErrRejected, err))
			case codes.Canceled:
			default:
				a.cb.OnStreamError(s.id, s.channel, fmt.Errorf("%w: %v", transcription.ErrDropped, err))
			}
			return
		}

		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			if alt.Transcript == "" {
				log.Debug().Msg("Empty transcript result")
				continue
			}

			ev := models.TranscriptEvent{
				Text:    alt.Transcript,
				IsFinal: r.IsFinal,
				Channel: s.channel,
			}
			for _, w := range alt.Words {
				tag := int(w.SpeakerTag)
				word := models.Word{Word: w.Word}
				if tag > 0 {
					t := tag
					word.Speaker = &t
				}
				ev.Words = append(ev.Words, word)
			}
			ev.SpeakerTag = majoritySpeaker(ev.Words)
			a.cb.OnTranscript(s.id, ev)
		}
	}
}

// majoritySpeaker mirrors the websocket client's rule: the speaker with the
// most words wins, ties break toward the first seen.
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
