package connectors

import (
	"context"
	"fmt"
	"strings"

	"caremind/internal/config"
	gmailconnector "caremind/internal/connectors/gmail"
	imapconnector "caremind/internal/connectors/imap"
)

// NewDraftSink picks the provider named by SHARE_PROVIDER. "file" (or
// empty) returns a nil sink: messages are only kept on disk.
func NewDraftSink(ctx context.Context, cfg config.Config) (DraftSink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ShareProvider)) {
	case "", ProviderFile:
		return nil, nil
	case "gmail":
		conn, err := gmailconnector.NewConnector(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "imap":
		conn, err := imapconnector.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported share provider: %s", cfg.ShareProvider)
	}
}
