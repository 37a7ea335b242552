// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/litkeeper/litkeeper/internal/epub"
	"github.com/litkeeper/litkeeper/internal/log"
)

// writeEPUB writes the assembled book to path atomically. renameio handles
// temp file creation, fsync and the atomic rename, so readers serving the
// library directory never see a partial file.
func writeEPUB(ctx context.Context, path string, book *epub.Book) (int64, error) {
	logger := log.FromContext(ctx)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return 0, fmt.Errorf("create pending epub file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending epub file")
		}
	}()

	n, err := book.WriteTo(pending)
	if err != nil {
		return 0, fmt.Errorf("write epub data: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("atomically replace epub file: %w", err)
	}

	return n, nil
}
