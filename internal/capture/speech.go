package capture

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Transcript is one incremental transcription update. Later updates
// supersede earlier ones; the last update has Final set.
type Transcript struct {
	Text  string
	Final bool
}

// Transcriber turns a live audio stream into transcript updates. The channel
// is closed after the final update or when ctx ends.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (<-chan Transcript, error)
}

// ErrNoFinalTranscript is returned by Collect when the stream ends early.
var ErrNoFinalTranscript = errors.New("transcription ended without a final result")

// Collect drains updates and returns the final text.
func Collect(ctx context.Context, updates <-chan Transcript) (string, error) {
	var last string
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case t, ok := <-updates:
			if !ok {
				return last, ErrNoFinalTranscript
			}
			last = t.Text
			if t.Final {
				return last, nil
			}
		}
	}
}

// StaticTranscriber emits Text one word at a time, then a final update. The
// audio is drained and otherwise ignored.
type StaticTranscriber struct {
	Text string
}

// Transcribe implements Transcriber.
func (s StaticTranscriber) Transcribe(ctx context.Context, audio io.Reader) (<-chan Transcript, error) {
	if audio != nil {
		if _, err := io.Copy(io.Discard, audio); err != nil {
			return nil, err
		}
	}
	words := strings.Fields(s.Text)
	out := make(chan Transcript)
	go func() {
		defer close(out)
		for i := 1; i <= len(words); i++ {
			t := Transcript{Text: strings.Join(words[:i], " "), Final: i == len(words)}
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
		if len(words) == 0 {
			select {
			case out <- Transcript{Final: true}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}
