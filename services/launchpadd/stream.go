package launchpadd

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"launchpad/core"
	"launchpad/indexer"
)

const wsWriteTimeout = 10 * time.Second

// IndexedEvent is the wire form of an indexer row.
type IndexedEvent struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	ProjectID  *uint64           `json:"projectId,omitempty"`
	SaleID     *uint64           `json:"saleId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func parseOptionalUint(field, raw string) (*uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, badRequest("invalid %s %q", field, raw)
	}
	return &value, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.writeError(w, r, errNotFound)
		return
	}
	q := r.URL.Query()
	filter := indexer.Filter{Type: q.Get("type"), Account: q.Get("account")}
	var err error
	if filter.ProjectID, err = parseOptionalUint("projectId", q.Get("projectId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filter.SaleID, err = parseOptionalUint("saleId", q.Get("saleId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	after, err := parseOptionalUint("after", q.Get("after"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if after != nil {
		filter.After = *after
	}
	limit, err := parseOptionalUint("limit", q.Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if limit != nil {
		filter.Limit = int(*limit)
	}
	rows, err := s.index.List(filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]IndexedEvent, 0, len(rows))
	for i := range rows {
		attrs, err := rows[i].Attrs()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, IndexedEvent{
			Sequence:   rows[i].Sequence,
			Type:       rows[i].Type,
			ProjectID:  rows[i].ProjectID,
			SaleID:     rows[i].SaleID,
			Attributes: attrs,
			CreatedAt:  rows[i].CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor string) error {
	updates, cancel, backlog, err := s.node.Subscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, evt := range backlog {
		if err := writeStreamEvent(ctx, conn, evt); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeStreamEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeStreamEvent(ctx context.Context, conn *websocket.Conn, evt core.StreamEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
