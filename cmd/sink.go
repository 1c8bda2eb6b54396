package cmd

import (
	"context"
	"strings"

	"adjanitor/config"
	"adjanitor/database"
	"adjanitor/logger"
	"adjanitor/report"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// findingSink fans report rows out to the optional CSV file and the optional
// findings database. Rows hit the CSV immediately (append-safe partial
// files); database writes are batched into one transaction at Flush.
type findingSink struct {
	csv      *report.CSVWriter
	db       *database.Database
	runID    uuid.UUID
	buffered [][2]string
	log      zerolog.Logger
}

func newFindingSink(ctx context.Context, cfg config.Configuration, log zerolog.Logger, tool string, header []string) (*findingSink, error) {
	sink := &findingSink{log: logger.WithComponent(log, "report")}

	if outputPath != "" {
		csvWriter, err := report.NewCSVWriter(outputPath, header)
		if err != nil {
			return nil, err
		}
		sink.csv = csvWriter
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL, logger.WithComponent(log, "database"))
		if err != nil {
			sink.Close()
			return nil, err
		}

		runID, err := db.BeginRun(ctx, tool)
		if err != nil {
			db.Close()
			sink.Close()
			return nil, err
		}

		sink.db = db
		sink.runID = runID
	}

	return sink, nil
}

// Emit writes one report row. Row-level write failures are logged, not
// fatal: per-item problems never abort a run once it has started.
func (s *findingSink) Emit(row []string) {
	if s.csv != nil {
		if err := s.csv.Write(row); err != nil {
			s.log.Error().Err(err).Msg("report row write failed")
		}
	}

	if s.db != nil && len(row) > 0 {
		s.buffered = append(s.buffered, [2]string{row[0], strings.Join(row[1:], ",")})
	}
}

func (s *findingSink) Flush(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.WriteFindings(ctx, s.runID, s.buffered)
}

func (s *findingSink) Close() {
	if s.csv != nil {
		if err := s.csv.Close(); err != nil {
			s.log.Error().Err(err).Msg("closing report file failed")
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}
