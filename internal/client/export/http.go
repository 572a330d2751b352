package export

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/creditkeeper/internal/netx"
)

// URLSink uploads snapshots with an HTTP PUT to a fixed URL, typically a
// presigned object storage URL. The object name is ignored.
type URLSink struct {
	URL    string
	Client *http.Client
}

func (s URLSink) Write(ctx context.Context, _ string, data []byte) (string, error) {
	if err := netx.PutBytes(ctx, s.Client, s.URL, "application/json", data); err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	return s.URL, nil
}
