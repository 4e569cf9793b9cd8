package history

import (
	"bufio"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/shredsync/pkg/config"
)

// 📥 ImportLegacy reads a plain history file, one processed folder per line,
// and records each folder not already processed as a success at the given time.
// Blank lines and lines starting with # are ignored. It returns the number of new entries.
func ImportLegacy(ctx context.Context, store Store, r io.Reader, at time.Time) (int, error) {
	logger := zerolog.Ctx(ctx)

	imported := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		folder := strings.TrimSuffix(path.Clean(line), "/")
		if store.IsProcessed(folder) {
			logger.Debug().Str("folder", folder).Msg("already in history, skipping")
			continue
		}
		if err := store.Record(ctx, Entry{
			Folder:      folder,
			ProcessedAt: at,
			Outcome:     OutcomeSuccess,
			Action:      config.ActionCopy,
		}); err != nil {
			return imported, errors.Errorf("importing %s: %w", folder, err)
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		return imported, errors.Errorf("reading legacy history: %w", err)
	}

	if err := store.Flush(ctx); err != nil {
		return imported, errors.Errorf("flushing history: %w", err)
	}

	logger.Info().Int("imported", imported).Msg("legacy history imported")
	return imported, nil
}
