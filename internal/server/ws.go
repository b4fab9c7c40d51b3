package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/spectravad/internal/observe"
)

// handleWebSocket classifies every binary message on the connection as one
// complete clip. The payload format and sample rate are fixed per connection
// by the format and sample_rate query parameters of the upgrade request
// (default f32le at the detector's rate). Each clip is answered with one JSON
// text message: a [Response] or an error object.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	det := s.Detector()
	if det == nil {
		s.writeError(ctx, w, sourceWS, ErrNoDetector)
		return
	}

	format := "f32le"
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = requestFormat(r); err != nil {
			s.writeError(ctx, w, sourceWS, err)
			return
		}
	}
	rate, err := requestRate(r, det.Config().SampleRate)
	if err != nil {
		s.writeError(ctx, w, sourceWS, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written an error response.
		observe.Logger(ctx).Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(s.maxBody)

	s.metrics.ActiveConnections.Add(ctx, 1)
	defer s.metrics.ActiveConnections.Add(context.WithoutCancel(ctx), -1)

	log := observe.Logger(ctx)
	log.Debug("websocket session opened", "format", format, "sample_rate", rate)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug("websocket session closed")
			case websocket.StatusMessageTooBig:
				s.metrics.RecordDetectError(ctx, sourceWS, "too_large")
				log.Debug("websocket message too large", "limit", s.maxBody)
			default:
				if !errors.Is(err, context.Canceled) {
					log.Debug("websocket read failed", "err", err)
				}
			}
			return
		}

		var reply any
		if typ != websocket.MessageBinary {
			reply = s.wsError(ctx, fmt.Errorf("%w: text messages are not audio", ErrUnsupportedFormat))
		} else if clip, err := decodeClip(format, data, rate); err != nil {
			reply = s.wsError(ctx, err)
		} else if resp, err := s.detect(ctx, sourceWS, clip); err != nil {
			reply = s.wsError(ctx, err)
		} else {
			reply = resp
		}

		payload, err := json.Marshal(reply)
		if err != nil {
			conn.Close(websocket.StatusInternalError, "encode reply")
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			log.Debug("websocket write failed", "err", err)
			return
		}
	}
}

// wsError records err and returns the error object sent back to the client.
func (s *Server) wsError(ctx context.Context, err error) errorResponse {
	_, kind := classify(err)
	s.metrics.RecordDetectError(ctx, sourceWS, kind)
	return errorResponse{Error: err.Error(), Kind: kind}
}
