package connectors

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"caremind/internal"
	"caremind/internal/logger"
	"caremind/internal/storage"
)

const ProviderFile = "file"

type ShareService struct {
	db    *storage.DB
	sink  DraftSink
	store *MailStore
	log   zerolog.Logger
}

type ShareResult struct {
	Provider  string
	MessageID string
	RawPath   string
}

// NewShareService writes every message under rawMailDir. A nil sink keeps
// the local copy only.
func NewShareService(db *storage.DB, rawMailDir string, sink DraftSink) *ShareService {
	return &ShareService{
		db:    db,
		sink:  sink,
		store: NewMailStore(rawMailDir),
		log:   logger.NewLogger("share"),
	}
}

func (s *ShareService) Share(ctx context.Context, msg internal.OutgoingMessage) (ShareResult, error) {
	rawPath, err := s.store.Store(msg)
	if err != nil {
		return ShareResult{}, fmt.Errorf("store message: %w", err)
	}

	result := ShareResult{Provider: ProviderFile, MessageID: msg.MessageID, RawPath: rawPath}
	if s.sink != nil {
		id, err := s.sink.SaveDraft(ctx, msg)
		if err != nil {
			return ShareResult{}, fmt.Errorf("%s draft: %w", s.sink.Provider(), err)
		}
		result.Provider = s.sink.Provider()
		if id != "" {
			result.MessageID = id
		}
	}

	if err := s.db.InsertShare(msg.PatientID, result.Provider, result.MessageID, rawPath); err != nil {
		return ShareResult{}, err
	}
	s.log.Info().Str("patientId", msg.PatientID).Str("provider", result.Provider).
		Str("messageId", result.MessageID).Msg("handoff shared")
	return result, nil
}
