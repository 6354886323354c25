package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"chat-screen-monitor/store"
)

const worksheetName = "Messages"

var header = []interface{}{
	"ID", "Nickname", "Time", "Content", "Topic", "Sentiment",
	"Alert", "Extracted At", "Screenshot",
}

// Sink maintains one workbook per calendar hour, created with a header row
// and appended to as messages arrive. Files are never rewritten destructively;
// appends load the workbook, add rows after the last one, and save.
type Sink struct {
	dir string
}

// NewSink creates a sink writing workbooks under dir.
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// HourKey returns the local-hour bucket name for t: YYYY-MM-DD_HH.
func HourKey(t time.Time) string {
	return t.Format("2006-01-02_15")
}

// Path returns the workbook path for the hour containing t.
func (s *Sink) Path(t time.Time) string {
	return filepath.Join(s.dir, HourKey(t)+".xlsx")
}

// EnsureHourlySheet creates the workbook for t's hour with the header row if
// it does not exist yet. Idempotent: an existing workbook, including its data
// rows, is left untouched.
func (s *Sink) EnsureHourlySheet(t time.Time) error {
	path := s.Path(t)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create sheet directory: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", worksheetName); err != nil {
		return fmt.Errorf("rename worksheet: %w", err)
	}
	if err := f.SetSheetRow(worksheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(worksheetName, 1, 1, styleID)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("create hourly sheet %s: %w", path, err)
	}
	return nil
}

// Append adds one row per record to the workbook for t's hour, preserving
// arrival order, creating the workbook first if absent.
func (s *Sink) Append(records []store.Message, t time.Time) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.EnsureHourlySheet(t); err != nil {
		return err
	}
	path := s.Path(t)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open hourly sheet %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(worksheetName)
	if err != nil {
		return fmt.Errorf("read hourly sheet %s: %w", path, err)
	}
	next := len(rows) + 1
	for i, msg := range records {
		alertFlag := "no"
		if msg.IsAlert {
			alertFlag = "yes"
		}
		row := []interface{}{
			msg.ID, msg.Nickname, msg.MessageTime, msg.Content,
			string(msg.Topic), string(msg.Sentiment), alertFlag,
			msg.ExtractedAt, msg.ScreenshotPath,
		}
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(worksheetName, cell, &row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("save hourly sheet %s: %w", path, err)
	}
	return nil
}
