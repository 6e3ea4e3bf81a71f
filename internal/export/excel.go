package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"herelaw/internal/domain"
)

const sessionsSheet = "Sessions"

// Exporter writes consultation artifacts into the user's export
// directory: a session-history workbook and plain-text complaint
// documents.
type Exporter struct {
	dir string
	log *logrus.Entry
}

func NewExporter(dir string, log *logrus.Entry) *Exporter {
	return &Exporter{dir: dir, log: log}
}

// SessionsWorkbook writes all session records into a timestamped xlsx
// file and returns its path.
func (e *Exporter) SessionsWorkbook(records []domain.SessionRecord) (string, error) {
	if len(records) == 0 {
		return "", errors.New("no sessions to export")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.log.WithError(err).Warn("failed to close workbook")
		}
	}()

	if err := f.SetSheetName("Sheet1", sessionsSheet); err != nil {
		return "", fmt.Errorf("prepare sheet: %w", err)
	}

	header := []interface{}{"Session ID", "Created", "Consultation", "Complaint", "Rating", "Feedback"}
	if err := f.SetSheetRow(sessionsSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for i, record := range records {
		created := ""
		if !record.CreatedAt.IsZero() {
			created = record.CreatedAt.Format(time.RFC3339)
		}
		rating := interface{}(nil)
		if record.Rating > 0 {
			rating = record.Rating
		}
		row := []interface{}{
			record.SessionID,
			created,
			record.ConsultationText,
			record.Complaint,
			rating,
			record.Feedback,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sessionsSheet, cell, &row); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("herelaw-sessions-%s.xlsx", time.Now().Format("20060102-150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.log.WithFields(logrus.Fields{"path": path, "sessions": len(records)}).Info("exported session history")
	return path, nil
}

// ComplaintDocument writes the complaint as a plain-text document and
// returns its path.
func (e *Exporter) ComplaintDocument(sessionID, complaint string) (string, error) {
	if complaint == "" {
		return "", errors.New("no complaint to export")
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	name := fmt.Sprintf("herelaw-complaint-%s.txt", time.Now().Format("20060102-150405"))
	if sessionID != "" {
		name = fmt.Sprintf("herelaw-complaint-%s.txt", sessionID)
	}
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(complaint), 0o644); err != nil {
		return "", fmt.Errorf("write complaint document: %w", err)
	}

	e.log.WithField("path", path).Info("exported complaint document")
	return path, nil
}
