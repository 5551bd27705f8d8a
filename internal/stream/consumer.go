package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// frameDelimiter separates SSE frames; a frame may span multiple reads
var frameDelimiter = []byte("\n\n")

const dataPrefix = "data: "

// StreamError is an in-band error event surfaced by the server after the
// response status was already committed
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}

// Handlers receives demultiplexed events as frames are decoded. Any
// handler may be nil.
type Handlers struct {
	OnMetadata func(*MetadataPayload)
	OnContent  func(delta string)

	// OnMalformed is invoked for frames that fail to decode. Malformed
	// frames never abort the stream.
	OnMalformed func(frame string, err error)
}

// ConsumeResult holds everything captured from a stream: the metadata
// payload (if one arrived) and the accumulated content text.
type ConsumeResult struct {
	Meta    *MetadataPayload
	Content string
}

// Consume reads SSE frames from r until a terminal event arrives. It
// buffers partial frames across reads, so chunk boundaries anywhere in a
// frame are handled. On a done event it returns the captured result; on
// an error event it returns the result captured so far together with a
// *StreamError, preserving partial metadata. A stream that ends without
// a terminal event is reported as an error.
func Consume(r io.Reader, h Handlers) (*ConsumeResult, error) {
	res := &ConsumeResult{}
	var content strings.Builder
	var pending bytes.Buffer
	chunk := make([]byte, 4096)

	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			pending.Write(chunk[:n])

			for {
				raw := pending.Bytes()
				idx := bytes.Index(raw, frameDelimiter)
				if idx < 0 {
					break
				}

				frame := string(raw[:idx])
				pending.Next(idx + len(frameDelimiter))

				ev, ok := decodeFrame(frame, h)
				if !ok {
					continue
				}

				switch ev.Type {
				case EventMetadata:
					res.Meta = ev.Meta
					if h.OnMetadata != nil {
						h.OnMetadata(ev.Meta)
					}
				case EventContent:
					content.WriteString(ev.Delta)
					if h.OnContent != nil {
						h.OnContent(ev.Delta)
					}
				case EventError:
					res.Content = content.String()
					return res, &StreamError{Message: ev.Message}
				case EventDone:
					res.Content = content.String()
					return res, nil
				}
			}
		}

		if readErr == io.EOF {
			res.Content = content.String()
			return res, fmt.Errorf("stream ended without terminal event")
		}
		if readErr != nil {
			res.Content = content.String()
			return res, fmt.Errorf("reading stream: %w", readErr)
		}
	}
}

// decodeFrame parses one complete frame into an event. Frames without the
// data prefix or with invalid JSON are reported to OnMalformed and skipped.
func decodeFrame(frame string, h Handlers) (Event, bool) {
	frame = strings.TrimSpace(frame)
	if frame == "" {
		return Event{}, false
	}

	if !strings.HasPrefix(frame, dataPrefix) {
		if h.OnMalformed != nil {
			h.OnMalformed(frame, fmt.Errorf("frame missing data prefix"))
		}
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frame, dataPrefix)), &ev); err != nil {
		if h.OnMalformed != nil {
			h.OnMalformed(frame, err)
		}
		return Event{}, false
	}

	return ev, true
}
