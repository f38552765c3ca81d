package connectors

import (
	"context"

	"caremind/internal"
)

// DraftSink files a rendered message as a draft with a mail provider and
// returns the provider's id for it.
type DraftSink interface {
	Provider() string
	SaveDraft(ctx context.Context, msg internal.OutgoingMessage) (string, error)
}
