package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/domain/shared"
	"github.com/campus/backend/internal/domain/shared/valueobject"
	"github.com/campus/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPerStudentTimeout bounds one student's generation inside a batch
const DefaultPerStudentTimeout = 10 * time.Second

// DueGenerationService materializes monthly dues from fee structures
type DueGenerationService struct {
	hooks
	scope             TransactionScope
	adjustments       *AdjustmentService
	students          ledger.StudentDirectory
	fees              ledger.FeeStructureProvider
	clock             ledger.Clock
	perStudentTimeout time.Duration
}

// NewDueGenerationService creates a new DueGenerationService.
// A zero perStudentTimeout uses DefaultPerStudentTimeout.
func NewDueGenerationService(
	scope TransactionScope,
	adjustments *AdjustmentService,
	students ledger.StudentDirectory,
	fees ledger.FeeStructureProvider,
	clock ledger.Clock,
	perStudentTimeout time.Duration,
	logger *zap.Logger,
) *DueGenerationService {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	if adjustments == nil {
		adjustments = NewAdjustmentService(scope, logger)
	}
	if perStudentTimeout <= 0 {
		perStudentTimeout = DefaultPerStudentTimeout
	}
	return &DueGenerationService{
		hooks:             newHooks(logger),
		scope:             scope,
		adjustments:       adjustments,
		students:          students,
		fees:              fees,
		clock:             clock,
		perStudentTimeout: perStudentTimeout,
	}
}

// GenerateDuesRequest asks for every missing period of one student up to TargetDate
type GenerateDuesRequest struct {
	TenantID       uuid.UUID
	StudentID      uuid.UUID
	AdmissionDate  *time.Time
	TargetDate     time.Time
	FeeStructureID *uuid.UUID
}

// DueCreationResult reports what one generation run did
type DueCreationResult struct {
	// CreatedDuesCount counts periods that received items, new or existing
	CreatedDuesCount     int      `json:"created_dues_count"`
	SkippedDuesCount     int      `json:"skipped_dues_count"`
	TotalDueItemsCreated int      `json:"total_due_items_created"`
	LateFeesApplied      int      `json:"late_fees_applied"`
	MonthsCreated        []string `json:"months_created"`
	MonthsSkipped        []string `json:"months_skipped"`
}

// EnsureResult reports whether a student's dues had to be brought up to date
type EnsureResult struct {
	NeedsUpdate bool   `json:"needs_update"`
	DuesCreated int    `json:"dues_created"`
	Message     string `json:"message"`
}

// StudentFailure is one student's error inside a batch
type StudentFailure struct {
	StudentID uuid.UUID `json:"student_id"`
	Error     string    `json:"error"`
}

// BatchGenerationResult aggregates a class or tenant run
type BatchGenerationResult struct {
	Processed        int              `json:"processed"`
	Succeeded        int              `json:"succeeded"`
	Skipped          int              `json:"skipped"`
	TotalDuesCreated int              `json:"total_dues_created"`
	Failures         []StudentFailure `json:"failures"`
}

// EnsureDuesUpToDate generates anything missing up to the end of the
// current month. Students without a fee structure or admission date are
// reported, not failed.
func (s *DueGenerationService) EnsureDuesUpToDate(ctx context.Context, tenantID, studentID uuid.UUID) (*EnsureResult, error) {
	student, err := s.students.GetStudent(ctx, tenantID, studentID)
	if err != nil {
		return nil, err
	}
	if !student.ReadyForBilling() {
		return &EnsureResult{Message: "student has no fee structure or admission date"}, nil
	}

	res, err := s.GenerateForStudent(ctx, GenerateDuesRequest{
		TenantID:       tenantID,
		StudentID:      studentID,
		AdmissionDate:  student.AdmissionDate,
		TargetDate:     ledger.EndOfMonth(s.clock.Now()),
		FeeStructureID: student.FeeStructureID,
	})
	if err != nil {
		return nil, err
	}
	if res.CreatedDuesCount == 0 {
		return &EnsureResult{Message: "dues are up to date"}, nil
	}
	return &EnsureResult{
		NeedsUpdate: true,
		DuesCreated: res.CreatedDuesCount,
		Message:     fmt.Sprintf("created dues for %d month(s)", res.CreatedDuesCount),
	}, nil
}

// GenerateForStudent bills every period from the admission month through the
// target month. Missing periods are created; an existing period that holds
// only ad-hoc fees gets the fee structure lines too. Running it again for the
// same range creates nothing.
func (s *DueGenerationService) GenerateForStudent(ctx context.Context, req GenerateDuesRequest) (*DueCreationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", "generate_for_student",
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
	)
	defer span.End()

	if req.FeeStructureID == nil {
		err := shared.MissingPrerequisite("student %s has no fee structure", req.StudentID)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.AdmissionDate == nil {
		err := shared.MissingPrerequisite("student %s has no admission date", req.StudentID)
		telemetry.RecordError(span, err)
		return nil, err
	}
	target := req.TargetDate
	if target.IsZero() {
		target = ledger.EndOfMonth(s.clock.Now())
	}
	if ledger.DateOnly(*req.AdmissionDate).After(ledger.DateOnly(target)) {
		err := shared.ValidationFailed("admission date %s is after target date %s",
			req.AdmissionDate.Format(time.DateOnly), target.Format(time.DateOnly))
		telemetry.RecordError(span, err)
		return nil, err
	}

	fs, err := s.fees.GetFeeStructure(ctx, req.TenantID, *req.FeeStructureID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := fs.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	admission := ledger.PeriodOf(*req.AdmissionDate)
	periods := ledger.PeriodsBetween(*req.AdmissionDate, target)
	reference := s.clock.Now()
	res := &DueCreationResult{MonthsCreated: []string{}, MonthsSkipped: []string{}}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.StudentDueRepo().FindByStudent(ctx, req.TenantID, req.StudentID)
		if err != nil {
			return err
		}
		billed, err := templateBilled(ctx, repos, req.TenantID, existing)
		if err != nil {
			return err
		}
		have := make(map[string]*ledger.StudentDue, len(existing))
		for i := range existing {
			have[existing[i].Period.Key()] = &existing[i]
		}

		var (
			dues  []*ledger.StudentDue
			items []*ledger.DueItem
		)
		for _, p := range periods {
			due, ok := have[p.Key()]
			if !ok {
				due = ledger.NewStudentDue(req.TenantID, req.StudentID, p)
			} else if billed[due.ID] {
				res.MonthsSkipped = append(res.MonthsSkipped, p.Key())
				continue
			}
			// a period opened by an ad-hoc fee still gets its template lines
			var added int
			for _, line := range fs.LinesFor(admission, p) {
				lineID := line.ID
				item, err := ledger.NewDueItem(due, line.Name, line.Amount, line.CategoryID, &lineID)
				if err != nil {
					return err
				}
				items = append(items, item)
				added++
			}
			switch {
			case !ok:
				dues = append(dues, due)
				res.MonthsCreated = append(res.MonthsCreated, p.Key())
			case added > 0:
				res.MonthsCreated = append(res.MonthsCreated, p.Key())
			default:
				res.MonthsSkipped = append(res.MonthsSkipped, p.Key())
			}
		}
		if len(res.MonthsCreated) == 0 {
			return nil
		}

		// Late fees ride on the same inserts as the items they belong to.
		adjs, _, err := planLateFees(items, fs, reference, nil)
		if err != nil {
			return err
		}
		if err := repos.StudentDueRepo().CreateBatch(ctx, dues); err != nil {
			return err
		}
		if err := repos.DueItemRepo().CreateBatch(ctx, items); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().CreateBatch(ctx, adjs); err != nil {
			return err
		}
		res.CreatedDuesCount = len(res.MonthsCreated)
		res.TotalDueItemsCreated = len(items)
		res.LateFeesApplied = len(adjs)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	res.SkippedDuesCount = len(res.MonthsSkipped)
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, res.CreatedDuesCount)

	if res.TotalDueItemsCreated > 0 {
		s.metrics.RecordDuesGenerated(ctx, req.TenantID, res.TotalDueItemsCreated)
		s.metrics.RecordAdjustments(ctx, req.TenantID, string(ledger.AdjustmentLateFee), res.LateFeesApplied)
		s.invalidate(ctx, TenantTag(req.TenantID), StudentTag(req.TenantID, req.StudentID))
		s.log(ctx).Info("Dues generated",
			zap.String("student_id", req.StudentID.String()),
			zap.Int("periods", res.CreatedDuesCount),
			zap.Int("items", res.TotalDueItemsCreated),
			zap.Int("late_fees", res.LateFeesApplied),
		)
	}
	return res, nil
}

// templateBilled reports, per existing period, whether fee structure lines
// were already billed in it. Periods holding only ad-hoc fees are not.
func templateBilled(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, dues []ledger.StudentDue) (map[uuid.UUID]bool, error) {
	ids := make([]uuid.UUID, len(dues))
	for i, d := range dues {
		ids[i] = d.ID
	}
	items, err := repos.DueItemRepo().FindByStudentDues(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	billed := make(map[uuid.UUID]bool, len(dues))
	for _, item := range items {
		if item.FeeLineID != nil {
			billed[item.StudentDueID] = true
		}
	}
	return billed, nil
}

// GenerateForClass runs generation for the active students of a class,
// optionally narrowed to one section. A zero targetDate means the end of
// the current month.
func (s *DueGenerationService) GenerateForClass(ctx context.Context, tenantID, classID uuid.UUID, sectionID *uuid.UUID, targetDate time.Time) (*BatchGenerationResult, error) {
	students, err := s.students.ListByClass(ctx, tenantID, classID, sectionID)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, "generate_class", tenantID, students, targetDate), nil
}

// GenerateForAllActive runs generation for every active student of a tenant
func (s *DueGenerationService) GenerateForAllActive(ctx context.Context, tenantID uuid.UUID, targetDate time.Time) (*BatchGenerationResult, error) {
	students, err := s.students.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, "generate_all", tenantID, students, targetDate), nil
}

// runBatch generates sequentially, one transaction and one timeout per
// student. A failing student never stops the batch.
func (s *DueGenerationService) runBatch(ctx context.Context, job string, tenantID uuid.UUID, students []ledger.Student, targetDate time.Time) *BatchGenerationResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", job,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCount, len(students),
	)
	defer span.End()

	start := time.Now()
	if targetDate.IsZero() {
		targetDate = ledger.EndOfMonth(s.clock.Now())
	}
	res := &BatchGenerationResult{Failures: []StudentFailure{}}

	for i := range students {
		st := students[i]
		res.Processed++
		if !st.ReadyForBilling() {
			res.Skipped++
			continue
		}
		// admitted after the target: nothing to bill yet
		if ledger.DateOnly(*st.AdmissionDate).After(ledger.DateOnly(targetDate)) {
			res.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Failures = append(res.Failures, StudentFailure{StudentID: st.ID, Error: err.Error()})
			continue
		}

		created, err := s.generateWithTimeout(ctx, GenerateDuesRequest{
			TenantID:       tenantID,
			StudentID:      st.ID,
			AdmissionDate:  st.AdmissionDate,
			TargetDate:     targetDate,
			FeeStructureID: st.FeeStructureID,
		})
		if err != nil {
			res.Failures = append(res.Failures, StudentFailure{StudentID: st.ID, Error: err.Error()})
			s.log(ctx).Warn("Due generation failed for student",
				zap.String("job", job),
				zap.String("student_id", st.ID.String()),
				zap.Error(err),
			)
			continue
		}
		res.Succeeded++
		res.TotalDuesCreated += created
	}

	elapsed := time.Since(start)
	s.metrics.RecordBatch(ctx, job, elapsed, len(res.Failures))
	s.log(ctx).Info("Due generation batch finished",
		zap.String("job", job),
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failures)),
		zap.Int("dues_created", res.TotalDuesCreated),
		zap.Duration("elapsed", elapsed),
	)
	return res
}

func (s *DueGenerationService) generateWithTimeout(ctx context.Context, req GenerateDuesRequest) (int, error) {
	sctx, cancel := context.WithTimeout(ctx, s.perStudentTimeout)
	defer cancel()

	res, err := s.GenerateForStudent(sctx, req)
	if err != nil {
		if errors.Is(sctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("timed out after %s: %w", s.perStudentTimeout, err)
		}
		return 0, err
	}
	return res.CreatedDuesCount, nil
}

// LateFeeResult reports an accrual run for one student
type LateFeeResult struct {
	ItemsUpdated       int    `json:"items_updated"`
	AdjustmentsCreated int    `json:"adjustments_created"`
	TotalAmount        string `json:"total_amount"`
}

// AccrueLateFees brings the late fees of a student's open items up to what
// is owed at referenceDate. Only the positive difference over late fees
// already applied is added, so repeated runs never double charge.
func (s *DueGenerationService) AccrueLateFees(ctx context.Context, tenantID, studentID uuid.UUID, referenceDate time.Time) (*LateFeeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", "accrue_late_fees",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrStudentID, studentID.String(),
	)
	defer span.End()

	student, err := s.students.GetStudent(ctx, tenantID, studentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if student.FeeStructureID == nil {
		err := shared.MissingPrerequisite("student %s has no fee structure", studentID)
		telemetry.RecordError(span, err)
		return nil, err
	}
	fs, err := s.fees.GetFeeStructure(ctx, tenantID, *student.FeeStructureID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if referenceDate.IsZero() {
		referenceDate = s.clock.Now()
	}

	var adjs []*ledger.DueAdjustment
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		open, err := repos.DueItemRepo().FindOpenByStudent(ctx, tenantID, studentID)
		if err != nil {
			return err
		}
		var ids []uuid.UUID
		for _, item := range open {
			if item.FeeLineID == nil {
				continue
			}
			if line, ok := fs.Line(*item.FeeLineID); ok && line.LateFee.Enabled {
				ids = append(ids, item.ID)
			}
		}
		locked, err := repos.DueItemRepo().FindByIDsForUpdate(ctx, tenantID, ids)
		if err != nil {
			return err
		}
		items := make([]*ledger.DueItem, len(locked))
		for i := range locked {
			items[i] = &locked[i]
		}
		adjs, err = s.adjustments.ApplyLateFeesBatch(ctx, repos, items, fs, referenceDate)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	res := &LateFeeResult{AdjustmentsCreated: len(adjs), ItemsUpdated: len(adjs)}
	total := valueobject.Zero()
	for _, a := range adjs {
		total = total.Add(a.Amount)
	}
	res.TotalAmount = total.String()

	if len(adjs) > 0 {
		s.metrics.RecordAdjustments(ctx, tenantID, string(ledger.AdjustmentLateFee), len(adjs))
		s.invalidate(ctx, TenantTag(tenantID), StudentTag(tenantID, studentID))
		s.log(ctx).Info("Late fees accrued",
			zap.String("student_id", studentID.String()),
			zap.Int("adjustments", len(adjs)),
			zap.String("total", res.TotalAmount),
		)
	}
	return res, nil
}

// MarkOverdue flags every PENDING or PARTIAL item whose period ended before
// asOf. Returns the number of items flagged.
func (s *DueGenerationService) MarkOverdue(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", "mark_overdue",
		telemetry.SpanAttrTenantID, tenantID.String(),
	)
	defer span.End()

	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	var n int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		n, err = repos.DueItemRepo().MarkOverdue(ctx, tenantID, ledger.PeriodOf(asOf))
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, n)

	if n > 0 {
		s.invalidate(ctx, TenantTag(tenantID))
		s.log(ctx).Info("Due items marked overdue", zap.Int64("count", n), zap.String("before", ledger.PeriodOf(asOf).Key()))
	}
	return n, nil
}
