package services

import (
	"context"
	"fmt"
	"io"

	"ElderCare360/apperr"
	"ElderCare360/models"
	"ElderCare360/role"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Health records"

var exportHeaders = []string{"Date", "Systolic", "Diastolic", "Heart rate", "Oxygen", "Weight", "Glucose", "Temperature"}

// ExportFileName is the attachment name of a patient's export.
func ExportFileName(p *models.Patient) string {
	return fmt.Sprintf("health-records-%s.xlsx", p.Code)
}

/*
* Load every record of the patient, newest first
* Write one row per record under a frozen header row
* Absent metrics stay empty cells
 */
func (s *CareStore) ExportHealthRecords(ctx context.Context, patientID string, w io.Writer) (p *models.Patient, err error) {
	defer func() { s.metrics.Observe("exportHealthRecords", err) }()

	p, err = s.access(ctx, patientID, role.ResourceHealthRecord, role.ActionExport)
	if err != nil {
		return nil, err
	}
	records, err := s.records.List(ctx, p.ID, 0)
	if err != nil {
		s.log.Error("Error from healthRecords list", zap.Error(err))
		return nil, apperr.ErrReadFailed.WithCause(err)
	}
	if err := writeHealthSheet(records, w); err != nil {
		s.log.Error("Error from health record export", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func writeHealthSheet(records []models.HealthRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, r := range records {
		row := []interface{}{r.DateTime.Format("2006-01-02 15:04"), nil, nil, value(r.HeartRate), value(r.Oxygen), value(r.Weight), value(r.Glucose), value(r.Temperature)}
		if bp := r.BloodPressure; bp != nil {
			row[1], row[2] = bp.Sys, bp.Dia
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func value(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
