package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		promptName  sql.NullString
		provider    sql.NullString
		archivePath sql.NullString
		abortReason sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&promptName,
		&provider,
		&run.InputCount,
		&archivePath,
		&run.Processed,
		&run.Skipped,
		&run.Failed,
		&abortReason,
	); err != nil {
		return Run{}, err
	}
	run.PromptName = promptName.String
	run.Provider = provider.String
	run.ArchivePath = archivePath.String
	run.AbortReason = abortReason.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func scanItem(row scanner) (Item, error) {
	var (
		item        Item
		outcome     string
		sourceURL   sql.NullString
		title       sql.NullString
		outputPath  sql.NullString
		errMessage  sql.NullString
		errKind     sql.NullString
		durationMS  int64
		recordedRaw string
	)
	if err := row.Scan(
		&item.RunID,
		&item.Position,
		&item.ContentID,
		&sourceURL,
		&title,
		&outcome,
		&outputPath,
		&errMessage,
		&errKind,
		&durationMS,
		&recordedRaw,
	); err != nil {
		return Item{}, err
	}
	item.Outcome = Outcome(outcome)
	item.SourceURL = sourceURL.String
	item.Title = title.String
	item.OutputPath = outputPath.String
	item.Error = errMessage.String
	item.ErrorKind = errKind.String
	item.Duration = time.Duration(durationMS) * time.Millisecond
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		item.RecordedAt = recorded
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

var likeEscaper = strings.NewReplacer(`%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
