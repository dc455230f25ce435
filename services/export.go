package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"homeowner-assistant-platform/internal/logger"
	"homeowner-assistant-platform/models"
)

const exportRecordCap = 10000

// ExportService builds Excel workbooks of answer records for a development,
// used by site teams to review what homeowners are asking.
type ExportService struct {
	db *mongo.Database
}

func NewExportService(db *mongo.Database) *ExportService {
	return &ExportService{db: db}
}

// ExportAnswerRecords returns an xlsx workbook with one row per answer record
// in the given window. Zero times mean an unbounded window on that side.
func (es *ExportService) ExportAnswerRecords(ctx context.Context, developmentID string, from, to time.Time) ([]byte, int, error) {
	filter := bson.M{"development_id": developmentID}
	window := bson.M{}
	if !from.IsZero() {
		window["$gte"] = from
	}
	if !to.IsZero() {
		window["$lte"] = to
	}
	if len(window) > 0 {
		filter["timestamp"] = window
	}

	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(exportRecordCap)
	cursor, err := es.db.Collection("answer_records").Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query answer records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.AnswerRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode answer records: %w", err)
	}

	workbook, err := buildWorkbook(records)
	if err != nil {
		return nil, 0, err
	}
	return workbook, len(records), nil
}

func buildWorkbook(records []models.AnswerRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close workbook", "error", err)
		}
	}()

	sheetName := "Questions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Timestamp", "Unit", "Topic", "Question", "Answer", "Source",
		"Chunks Used", "Latency (ms)", "Safety Intercept", "GDPR Blocked", "Truncated",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	topicCounts := map[string]int{}
	intercepts := 0
	for rowIdx, rec := range records {
		row := rowIdx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rec.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rec.UnitUID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rec.QuestionTopic)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rec.Question)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), rec.Answer)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), rec.Source)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), rec.ChunksUsed)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), rec.LatencyMs)
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), rec.SafetyIntercept)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), rec.GDPRBlocked)
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), rec.StreamTruncated)

		topicCounts[rec.QuestionTopic]++
		if rec.SafetyIntercept || rec.GDPRBlocked {
			intercepts++
		}
	}

	for i := range headers {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetCellValue(summarySheet, "A1", "Total questions")
	f.SetCellValue(summarySheet, "B1", len(records))
	f.SetCellValue(summarySheet, "A2", "Policy intercepts")
	f.SetCellValue(summarySheet, "B2", intercepts)
	f.SetCellValue(summarySheet, "A4", "Topic")
	f.SetCellValue(summarySheet, "B4", "Count")
	row := 5
	for topic, count := range topicCounts {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), topic)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), count)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
