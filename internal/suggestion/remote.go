package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"unicode/utf8"
)

// RemoteStreamer reads suggestions from an HTTP endpoint that answers
// POST {"prompt": ...} with a chunked text/plain body.
type RemoteStreamer struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewRemoteStreamer(endpoint string) *RemoteStreamer {
	return &RemoteStreamer{Endpoint: endpoint, HTTPClient: &http.Client{}}
}

func (r *RemoteStreamer) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, _ := json.Marshal(map[string]string{"prompt": prompt})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
		if err != nil {
			yield("", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.HTTPClient.Do(req)
		if err != nil {
			yield("", fmt.Errorf("suggestions: %w", err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			yield("", fmt.Errorf("suggestions: status=%d body=%s", resp.StatusCode, string(preview)))
			return
		}

		buf := make([]byte, 4096)
		var pending []byte
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				pending = append(pending, buf[:n]...)
				cut := completeRunes(pending)
				if cut > 0 {
					chunk := string(pending[:cut])
					pending = append(pending[:0], pending[cut:]...)
					if !yield(chunk, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					yield(string(pending), nil)
				}
				return
			}
			if err != nil {
				yield("", fmt.Errorf("suggestions: read body: %w", err))
				return
			}
		}
	}
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
