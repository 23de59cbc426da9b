package chathub

import (
	"encoding/json"
	"errors"

	"strangerchat/backend/internal/models"
	"strangerchat/backend/pkg/errorx"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

// decode unmarshals and validates an event payload. A missing payload is
// treated as an empty object.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidPayload, "malformed payload")
	}
	if err := validate.Struct(v); err != nil {
		return errorx.Wrap(err, errorx.CodeInvalidPayload, "invalid payload")
	}
	return nil
}

// HandleInbound dispatches one inbound event. Any failure is reported back
// to the sender as an error event; nothing here tears down the connection.
func (m *ManagerService) HandleInbound(in models.Inbound) {
	id := in.ParticipantID
	if in.Event != models.EventJoin {
		m.Touch(id)
	}

	var err error
	switch in.Event {
	case models.EventJoin:
		var p models.JoinPayload
		if err = decode(in.Data, &p); err == nil {
			_, err = m.Join(id, p)
		}
	case models.EventFindPartner:
		var p models.FindPartnerPayload
		if err = decode(in.Data, &p); err == nil {
			err = m.FindPartner(id, p.Filter)
		}
	case models.EventLeaveSearch:
		err = m.CancelSearch(id)
	case models.EventNextPartner:
		err = m.NextPartner(id)
	case models.EventLeaveChat:
		err = m.LeaveChat(id)
	case models.EventMessage:
		var p models.MessagePayload
		if err = decode(in.Data, &p); err == nil {
			_, err = m.SendDirect(id, p.To, p.Content)
			if errors.Is(err, errorx.ErrNoActiveSession) {
				// already answered with message_failed
				return
			}
		}
	case models.EventTyping:
		err = m.Typing(id, true)
	case models.EventStopTyping:
		err = m.Typing(id, false)
	case models.EventJoinRoom:
		var p models.JoinRoomPayload
		if err = decode(in.Data, &p); err == nil {
			_, err = m.JoinRoom(id, p.RoomID)
		}
	case models.EventLeaveRoom:
		err = m.LeaveRoom(id)
	case models.EventRoomMessage:
		var p models.RoomMessagePayload
		if err = decode(in.Data, &p); err == nil {
			_, err = m.SendRoom(id, p.RoomID, p.Content)
		}
	case models.EventHeartbeat:
	default:
		err = errorx.Newf(errorx.CodeInvalidPayload, "unknown event %q", in.Event)
	}

	if err != nil {
		zap.L().Debug("inbound event failed",
			zap.String("participant_id", id),
			zap.String("event", in.Event),
			zap.Error(err),
		)
		m.mu.Lock()
		m.notifyError(id, err)
		m.mu.Unlock()
	}
}
