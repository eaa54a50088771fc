package fallout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

type ExportFormat string

const (
	ExportJSON  ExportFormat = "json"
	ExportJSONL ExportFormat = "jsonl"
	ExportXLSX  ExportFormat = "xlsx"
)

func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportJSON, "":
		return ExportJSON, nil
	case ExportJSONL:
		return ExportJSONL, nil
	case ExportXLSX:
		return ExportXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

type ExportAuditInput struct {
	Format  ExportFormat
	OrderID string
}

const (
	exportPageSize   = 500
	exportSheetName  = "fallout_logs"
	exportTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

var exportHeaders = []string{"seq", "log_id", "order_id", "event_type", "description", "timestamp"}

// ExportAudit writes audit entries to w, either for one order or for the
// whole log in sequence order. It returns the number of entries written.
func (s *Service) ExportAudit(ctx context.Context, w io.Writer, input ExportAuditInput) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if w == nil {
		return 0, errors.New("export writer is required")
	}
	format, err := ParseExportFormat(string(input.Format))
	if err != nil {
		return 0, err
	}

	entries, err := s.collectAudit(ctx, strings.TrimSpace(input.OrderID))
	if err != nil {
		return 0, err
	}
	records := toAuditRecords(entries)

	switch format {
	case ExportJSONL:
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return 0, errs.Wrap(err, "encode audit record")
			}
		}
	case ExportXLSX:
		if err := writeAuditXLSX(w, records); err != nil {
			return 0, err
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return 0, errs.Wrap(err, "encode audit records")
		}
	}
	return len(records), nil
}

func (s *Service) collectAudit(ctx context.Context, orderID string) ([]domain.LogEntry, error) {
	if orderID != "" {
		if _, err := s.store.GetOrder(ctx, orderID); err != nil {
			if errors.Is(err, ports.ErrOrderNotFound) {
				return nil, fmt.Errorf("order %s not found: %w", orderID, err)
			}
			return nil, err
		}
		logs, err := s.store.GetLogs(ctx, orderID)
		if err != nil {
			return nil, errs.Wrap(err, "get logs")
		}
		return logs, nil
	}

	var (
		all    []domain.LogEntry
		cursor uint64
	)
	for {
		page, err := s.store.ListLogsAfter(ctx, cursor, exportPageSize)
		if err != nil {
			return nil, errs.Wrap(err, "list logs")
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
		cursor = page[len(page)-1].Seq
	}
}

func toAuditRecords(entries []domain.LogEntry) []ports.AuditRecord {
	records := make([]ports.AuditRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, ports.AuditRecord{
			Seq:         e.Seq,
			LogID:       e.LogID,
			OrderID:     e.OrderID,
			EventType:   string(e.EventType),
			Description: e.Description,
			Timestamp:   e.Timestamp.UTC(),
		})
	}
	return records
}

func writeAuditXLSX(w io.Writer, records []ports.AuditRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return errs.Wrap(err, "name sheet")
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeaders); err != nil {
		return errs.Wrap(err, "write header row")
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errs.Wrap(err, "create header style")
	}
	if err := f.SetCellStyle(exportSheetName, "A1", "F1", style); err != nil {
		return errs.Wrap(err, "style header row")
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errs.Wrap(err, "resolve cell")
		}
		row := []any{rec.Seq, rec.LogID, rec.OrderID, rec.EventType, rec.Description, rec.Timestamp.Format(exportTimeLayout)}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return errs.Wrapf(err, "write row %d", i+2)
		}
	}
	_ = f.SetColWidth(exportSheetName, "B", "C", 20)
	_ = f.SetColWidth(exportSheetName, "D", "D", 24)
	_ = f.SetColWidth(exportSheetName, "E", "E", 80)
	_ = f.SetColWidth(exportSheetName, "F", "F", 32)

	if err := f.Write(w); err != nil {
		return errs.Wrap(err, "write workbook")
	}
	return nil
}
