package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeeService adds ad-hoc fees (exam fee, trip, replacement card) outside the
// fee structure template.
type FeeService struct {
	hooks
	scope    TransactionScope
	students ledger.StudentDirectory
}

// NewFeeService creates a new FeeService
func NewFeeService(scope TransactionScope, students ledger.StudentDirectory, logger *zap.Logger) *FeeService {
	return &FeeService{hooks: newHooks(logger), scope: scope, students: students}
}

// AddFeeRequest charges one fee to several students for one period
type AddFeeRequest struct {
	TenantID   uuid.UUID
	StudentIDs []uuid.UUID
	Month      int
	Year       int
	Title      string
	Amount     valueobject.Money
	CategoryID *uuid.UUID
	Actor      string
}

// AddFeeResult reports which students were charged
type AddFeeResult struct {
	Added    int              `json:"added"`
	DueItems []uuid.UUID      `json:"due_items"`
	Failures []StudentFailure `json:"failures"`
}

// AddFeeToTarget creates one due item per student in the requested period,
// creating the period container when the student has none yet. Each student
// is its own transaction; failures are collected, not returned.
func (s *FeeService) AddFeeToTarget(ctx context.Context, req AddFeeRequest) (*AddFeeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee", "add_to_target",
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrCount, len(req.StudentIDs),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer span.End()

	period, err := ledger.NewBillingPeriod(req.Year, req.Month)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	switch {
	case title == "":
		err = shared.ValidationFailed("fee title cannot be empty")
	case !req.Amount.IsPositive():
		err = shared.ValidationFailed("fee amount must be positive, got %s", req.Amount)
	case len(req.StudentIDs) == 0:
		err = shared.ValidationFailed("at least one student is required")
	default:
		err = requireActor(req.Actor)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	res := &AddFeeResult{DueItems: []uuid.UUID{}, Failures: []StudentFailure{}}
	seen := make(map[uuid.UUID]bool, len(req.StudentIDs))
	var tags []string
	for _, studentID := range req.StudentIDs {
		if seen[studentID] {
			continue
		}
		seen[studentID] = true

		itemID, err := s.addOne(ctx, req, studentID, period, title)
		if err != nil {
			res.Failures = append(res.Failures, StudentFailure{StudentID: studentID, Error: err.Error()})
			continue
		}
		res.Added++
		res.DueItems = append(res.DueItems, itemID)
		tags = append(tags, StudentTag(req.TenantID, studentID))
	}

	if res.Added > 0 {
		s.metrics.RecordDuesGenerated(ctx, req.TenantID, res.Added)
		s.invalidate(ctx, append(tags, TenantTag(req.TenantID))...)
	}
	s.log(ctx).Info("Ad-hoc fee added",
		zap.String("title", title),
		zap.String("period", period.Key()),
		zap.String("amount", req.Amount.String()),
		zap.String("actor", req.Actor),
		zap.Int("added", res.Added),
		zap.Int("failed", len(res.Failures)),
	)
	return res, nil
}

func (s *FeeService) addOne(ctx context.Context, req AddFeeRequest, studentID uuid.UUID, period ledger.BillingPeriod, title string) (uuid.UUID, error) {
	// directory reads stay outside the transaction
	if _, err := s.students.GetStudent(ctx, req.TenantID, studentID); err != nil {
		return uuid.Nil, err
	}

	var itemID uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		due, err := repos.StudentDueRepo().FindByStudentAndPeriod(ctx, req.TenantID, studentID, period)
		if errors.Is(err, shared.ErrNotFound) {
			due = ledger.NewStudentDue(req.TenantID, studentID, period)
			err = repos.StudentDueRepo().Create(ctx, due)
		}
		if err != nil {
			return err
		}
		item, err := ledger.NewDueItem(due, title, req.Amount, req.CategoryID, nil)
		if err != nil {
			return err
		}
		itemID = item.ID
		return repos.DueItemRepo().CreateBatch(ctx, []*ledger.DueItem{item})
	})
	return itemID, err
}
