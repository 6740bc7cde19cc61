package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hosteldesk/hostel-api/internal/models"
	appErrors "github.com/hosteldesk/hostel-api/pkg/errors"
	"github.com/hosteldesk/hostel-api/pkg/export"
)

var occupancyReportHeaders = []string{"Room", "Block", "Type", "Floor", "AC", "Capacity", "Occupancy", "Status"}

type reportRoomLister interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
}

// ReportService renders occupancy reports as CSV or PDF.
type ReportService struct {
	rooms  reportRoomLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(rooms reportRoomLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		rooms:  rooms,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// OccupancyCSV renders the occupancy report as CSV bytes.
func (s *ReportService) OccupancyCSV(ctx context.Context, filter models.RoomFilter) ([]byte, error) {
	data, err := s.occupancyDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render occupancy report")
	}
	return payload, nil
}

// OccupancyPDF renders the occupancy report as PDF bytes.
func (s *ReportService) OccupancyPDF(ctx context.Context, filter models.RoomFilter) ([]byte, error) {
	data, err := s.occupancyDataset(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(data, "Room Occupancy Report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render occupancy report")
	}
	return payload, nil
}

func (s *ReportService) occupancyDataset(ctx context.Context, filter models.RoomFilter) (export.Dataset, error) {
	rooms, err := s.rooms.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms for report")
	}
	rows := make([]map[string]string, 0, len(rooms))
	for _, room := range rooms {
		rows = append(rows, map[string]string{
			"Room":      room.RoomNumber,
			"Block":     string(room.Block),
			"Type":      string(room.Type),
			"Floor":     strconv.Itoa(room.Floor),
			"AC":        yesNo(room.HasAC),
			"Capacity":  strconv.Itoa(room.Capacity),
			"Occupancy": fmt.Sprintf("%d/%d", room.Occupancy, room.Capacity),
			"Status":    string(room.DeriveStatus()),
		})
	}
	return export.Dataset{Headers: occupancyReportHeaders, Rows: rows}, nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
