package storage

import (
	"time"

	"strangerchat/backend/internal/models"

	"go.uber.org/zap"
)

// Archiver records session metadata and announces it on Redis. It satisfies
// the hub's session observer and only ever hands work to the pool, keyed by
// session so a record is closed after it is saved.
type Archiver struct {
	store Storage
	pool  *WorkerPool
}

func NewArchiver(store Storage, pool *WorkerPool) *Archiver {
	return &Archiver{store: store, pool: pool}
}

func (a *Archiver) SessionStarted(s models.Session, withPersona bool) {
	a.pool.Submit(s.ID, func() {
		rec := &models.SessionRecord{
			SessionID:    s.ID,
			ParticipantA: s.ParticipantA,
			ParticipantB: s.ParticipantB,
			WithPersona:  withPersona,
			StartedAt:    s.CreatedAt,
		}
		if err := a.store.SaveSessionRecord(rec); err != nil {
			zap.L().Warn("archive session start failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		a.publish(SessionEvent{
			Type:         SessionEventStarted,
			SessionID:    s.ID,
			ParticipantA: s.ParticipantA,
			ParticipantB: s.ParticipantB,
			WithPersona:  withPersona,
			At:           s.CreatedAt,
		})
	})
}

func (a *Archiver) SessionEnded(s models.Session, reason string, at time.Time) {
	a.pool.Submit(s.ID, func() {
		if err := a.store.CloseSessionRecord(s.ID, at, reason); err != nil {
			zap.L().Warn("archive session end failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		a.publish(SessionEvent{
			Type:         SessionEventEnded,
			SessionID:    s.ID,
			ParticipantA: s.ParticipantA,
			ParticipantB: s.ParticipantB,
			Reason:       reason,
			At:           at,
		})
	})
}

func (a *Archiver) publish(ev SessionEvent) {
	if err := a.store.PublishSessionEvent(ev); err != nil {
		zap.L().Warn("publish session event failed", zap.String("session_id", ev.SessionID), zap.Error(err))
	}
}
