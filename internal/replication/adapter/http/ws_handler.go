package http

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"replication-connector/internal/replication/domain/model"
	"replication-connector/internal/shared/utils"
)

// Stream message types
const (
	MessageTypeRecord = "record"
	MessageTypeEnd    = "end"
	MessageTypeAck    = "ack"
	MessageTypeError  = "error"
	MessageTypeDone   = "done"
)

const streamReadTimeout = 5 * time.Minute

// StreamRequest is sent by the host: a record, or end once every record was sent
type StreamRequest struct {
	Type   string        `json:"type"`
	Record *model.Record `json:"record,omitempty"`
}

// StreamResponse is sent to the host: one ack per record, then done
type StreamResponse struct {
	Type    string           `json:"type"`
	Ack     *model.RecordAck `json:"ack,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

// handleStream runs one write stream for the job in the path. Records are read
// until the host sends end or disconnects; acks are written as they complete.
func (h *ReplicationHandler) handleStream(conn *websocket.Conn) {
	jobID := conn.Params("jobId")
	sessionID := uuid.NewString()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = utils.WithSessionID(utils.WithJobID(ctx, jobID), sessionID)
	log := h.log.WithContext(ctx)

	records := make(chan model.Record)
	acks, err := h.uc.WriteStream(ctx, jobID, records)
	if err != nil {
		_, code := errorStatus(err)
		_ = conn.WriteJSON(StreamResponse{Type: MessageTypeError, Error: code, Message: err.Error()})
		log.Warnf("Rejected write stream: %v", err)
		return
	}
	log.Info("Write stream opened")

	go h.readRecords(ctx, cancel, conn, records)

	written := 0
	for ack := range acks {
		ack := ack
		written++
		if err := conn.WriteJSON(StreamResponse{Type: MessageTypeAck, Ack: &ack}); err != nil {
			log.Debugf("Failed to deliver ack: %v", err)
		}
	}

	_ = conn.WriteJSON(StreamResponse{Type: MessageTypeDone})
	log.Infof("Write stream closed after %d records", written)
}

// readRecords feeds the stream until end, a read failure or ctx cancellation.
// It is the only closer of records.
func (h *ReplicationHandler) readRecords(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, records chan<- model.Record) {
	defer close(records)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		var msg StreamRequest
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithContext(ctx).Errorf("Write stream read failed: %v", err)
			}
			cancel()
			return
		}

		switch msg.Type {
		case MessageTypeEnd:
			return
		case MessageTypeRecord:
			if msg.Record == nil {
				continue
			}
			select {
			case records <- *msg.Record:
			case <-ctx.Done():
				return
			}
		default:
			h.log.WithContext(ctx).Warnf("Ignoring stream message of type %q", msg.Type)
		}
	}
}
