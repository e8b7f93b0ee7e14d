package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

const exportSheet = "Enrollments"

var exportHeader = []interface{}{
	"Enrolled At", "Status", "Seat", "Course", "Standard", "Start Date",
	"Name", "Company", "Email", "Phone", "Amount (USD)", "Enrollment ID",
}

type adminService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAdminService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AdminService {
	return &adminService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *adminService) Overview(ctx context.Context, query OverviewQuery, actorID uuid.UUID) (*AdminOverviewResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, actorID, "enrollment", "list"); err != nil {
		return nil, err
	}

	page, size, offset := normalizePage(query.Page, query.Size)
	filters := repositories.EnrollmentFilters{
		Limit:     size,
		Offset:    offset,
		SortBy:    "enrolled_at",
		SortOrder: "desc",
	}

	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := models.EnrollmentStatus(strings.ToLower(raw))
		if !status.IsValid() {
			return nil, ValidationErrors{{
				Field:   "status",
				Message: "status must be one of pending, confirmed, cancelled",
				Value:   raw,
				Rule:    "enrollment_status",
			}}
		}
		filters.Status = &status
	}

	stats, err := s.repo.Enrollment().Stats(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment stats: %w", err)
	}

	enrollments, total, err := s.repo.Enrollment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	return &AdminOverviewResponse{
		Stats:       *stats,
		Enrollments: NewEnrollmentResponses(enrollments),
		Total:       total,
		Page:        page,
		Size:        size,
	}, nil
}

func (s *adminService) ListInquiries(ctx context.Context, page, size int, actorID uuid.UUID) (*InquiryListResponse, error) {
	if _, err := requireAdmin(ctx, s.repo, actorID, "inquiry", "list"); err != nil {
		return nil, err
	}

	page, size, offset := normalizePage(page, size)
	inquiries, total, err := s.repo.Inquiry().List(ctx, nil, repositories.InquiryFilters{
		Limit:  size,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}

	return &InquiryListResponse{
		Inquiries: inquiries,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// ExportEnrollments writes every enrollment, newest first, as an XLSX workbook.
func (s *adminService) ExportEnrollments(ctx context.Context, w io.Writer, actorID uuid.UUID) error {
	if _, err := requireAdmin(ctx, s.repo, actorID, "enrollment", "export"); err != nil {
		return err
	}

	enrollments, _, err := s.repo.Enrollment().List(ctx, nil, repositories.EnrollmentFilters{
		SortBy:    "enrolled_at",
		SortOrder: "desc",
	})
	if err != nil {
		return fmt.Errorf("failed to list enrollments: %w", err)
	}

	f, err := buildEnrollmentWorkbook(enrollments)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Enrollments exported", "rows", len(enrollments), "actor_id", actorID)
	return nil
}

func buildEnrollmentWorkbook(enrollments []*models.Enrollment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
		_ = f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold)
	}

	for i, e := range enrollments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}

		var title, standard, startDate string
		if e.Course != nil {
			title = e.Course.Title
			standard = e.Course.Standard
			startDate = e.Course.StartTime().Format("2006-01-02")
		}

		row := []interface{}{
			e.EnrolledAt.UTC().Format("2006-01-02 15:04"),
			e.Status.Label(),
			e.SeatNumber,
			title,
			standard,
			startDate,
			e.ContactName,
			e.Company,
			e.ContactEmail,
			e.ContactPhone,
			e.AmountPaid,
			e.ID.String(),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "L", 18)
	return f, nil
}
