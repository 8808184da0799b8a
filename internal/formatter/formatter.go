// package formatter renders resolution results and the resolution journal as text, CSV and Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytmproxy/internal/models"
	"github.com/desertthunder/ytmproxy/internal/resolver"
	"github.com/desertthunder/ytmproxy/internal/shared"
)

// Formats accepted by [RenderHistory].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryToCSV renders journal entries with columns: ID, Video ID, Outcome, Strategy, Duration (ms), Attempts, Created At
func HistoryToCSV(entries []*models.Resolution) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Video ID", "Outcome", "Strategy", "Duration (ms)", "Attempts", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range entries {
		record := []string{
			r.ID(),
			r.VideoID,
			string(r.Outcome),
			r.Strategy,
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			joinAttempts(r.Attempts),
			r.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToText renders one line per entry, followed by an indented line per failed attempt.
func HistoryToText(entries []*models.Resolution) ([]byte, error) {
	var buf bytes.Buffer

	if len(entries) == 0 {
		buf.WriteString("No resolutions recorded.\n")
		return buf.Bytes(), nil
	}

	for _, r := range entries {
		fmt.Fprintf(&buf, "%s  %-12s %-10s %s", r.CreatedAt().UTC().Format(timeLayout), r.VideoID, r.Outcome, r.Duration.Round(time.Millisecond))
		if r.Strategy != "" {
			fmt.Fprintf(&buf, " via %s", r.Strategy)
		}
		buf.WriteByte('\n')
		for _, a := range r.Attempts {
			fmt.Fprintf(&buf, "    %s: %s\n", a.Strategy, a.Error)
		}
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown renders journal entries as a Markdown table.
func HistoryToMarkdown(entries []*models.Resolution) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Resolution history\n\n")
	buf.WriteString(fmt.Sprintf("**Entries**: %d\n\n", len(entries)))
	buf.WriteString("| Time | Video | Outcome | Strategy | Duration | Failed attempts |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")

	for _, r := range entries {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
			r.CreatedAt().UTC().Format(timeLayout),
			r.VideoID,
			r.Outcome,
			r.Strategy,
			r.Duration.Round(time.Millisecond),
			strings.ReplaceAll(joinAttempts(r.Attempts), "|", `\|`),
		))
	}

	return buf.Bytes(), nil
}

// RenderHistory dispatches on format. An empty format means text.
func RenderHistory(entries []*models.Resolution, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return HistoryToText(entries)
	case FormatCSV:
		return HistoryToCSV(entries)
	case FormatMarkdown, "md":
		return HistoryToMarkdown(entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (valid: text, csv, markdown)", shared.ErrInvalidArgument, format)
	}
}

// WriteHistoryExport renders entries in format and writes them to path.
func WriteHistoryExport(entries []*models.Resolution, format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := RenderHistory(entries, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// StatsToText renders outcome counts in a fixed order.
func StatsToText(stats map[models.Outcome]int) string {
	var b strings.Builder
	total := 0
	for _, o := range []models.Outcome{models.OutcomeCacheHit, models.OutcomeResolved, models.OutcomeExhausted} {
		fmt.Fprintf(&b, "%-10s %d\n", o, stats[o])
		total += stats[o]
	}
	fmt.Fprintf(&b, "%-10s %d\n", "total", total)
	return b.String()
}

// ResolveReport describes the result of one in-process resolution for the terminal.
func ResolveReport(p *Palette, videoID string, res *resolver.Result, err error) string {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder
	b.WriteString(p.Title(videoID))
	b.WriteByte('\n')

	if err != nil {
		b.WriteString(p.Err("✗ " + shared.ErrExhausted.Error()))
		b.WriteByte('\n')

		var exhausted *resolver.ExhaustedError
		if errors.As(err, &exhausted) {
			for _, a := range exhausted.Attempts {
				b.WriteString("  " + p.Warn(a.Strategy) + ": " + a.Err + "\n")
			}
		} else {
			b.WriteString("  " + err.Error() + "\n")
		}
		return b.String()
	}

	source := res.Strategy
	if res.Cached {
		source = "cache"
	}
	b.WriteString(p.OK("✓ resolved") + " via " + source + p.Help(fmt.Sprintf(" (%s)", res.Duration.Round(time.Millisecond))) + "\n")
	for _, a := range res.Attempts {
		b.WriteString("  " + p.Warn(a.Strategy) + ": " + a.Err + "\n")
	}
	b.WriteString(res.URL + "\n")

	return b.String()
}

func joinAttempts(attempts []models.Attempt) string {
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = a.Strategy + ": " + a.Error
	}
	return strings.Join(parts, "; ")
}
