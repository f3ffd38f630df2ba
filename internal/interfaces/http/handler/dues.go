package handler

import (
	appledger "github.com/campus/backend/internal/application/ledger"
	"github.com/campus/backend/internal/domain/ledger"
	"github.com/campus/backend/internal/interfaces/http/dto"
	"github.com/campus/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DuesHandler exposes due generation, fees, late fees and adjustments
type DuesHandler struct {
	BaseHandler
	generation  *appledger.DueGenerationService
	fees        *appledger.FeeService
	adjustments *appledger.AdjustmentService
	students    ledger.StudentDirectory
}

// NewDuesHandler creates a new DuesHandler
func NewDuesHandler(
	generation *appledger.DueGenerationService,
	fees *appledger.FeeService,
	adjustments *appledger.AdjustmentService,
	students ledger.StudentDirectory,
) *DuesHandler {
	return &DuesHandler{
		generation:  generation,
		fees:        fees,
		adjustments: adjustments,
		students:    students,
	}
}

// EnsureUpToDate handles POST /students/:id/dues/ensure
func (h *DuesHandler) EnsureUpToDate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	studentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.generation.EnsureDuesUpToDate(c.Request.Context(), tenantID, studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Generate handles POST /students/:id/dues/generate. Admission date and fee
// structure default to the student's own.
func (h *DuesHandler) Generate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	studentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.GenerateDuesRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	student, err := h.students.GetStudent(ctx, tenantID, studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	genReq := appledger.GenerateDuesRequest{
		TenantID:       tenantID,
		StudentID:      studentID,
		AdmissionDate:  student.AdmissionDate,
		TargetDate:     date(req.TargetDate),
		FeeStructureID: student.FeeStructureID,
	}
	if req.AdmissionDate != "" {
		admission := date(req.AdmissionDate)
		genReq.AdmissionDate = &admission
	}
	if id := optionalUUID(req.FeeStructureID); id != nil {
		genReq.FeeStructureID = id
	}

	res, err := h.generation.GenerateForStudent(ctx, genReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// AccrueLateFees handles POST /students/:id/dues/late-fees
func (h *DuesHandler) AccrueLateFees(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	studentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AccrueLateFeesRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.generation.AccrueLateFees(c.Request.Context(), tenantID, studentID, date(req.ReferenceDate))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// GenerateBatch handles POST /dues/generate-batch. Per-student failures are
// part of the 200 body, not an error.
func (h *DuesHandler) GenerateBatch(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.GenerateBatchRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}
	if req.SectionID != "" && req.ClassID == "" {
		h.badField(c, "section_id", "Requires class_id")
		return
	}

	var (
		res *appledger.BatchGenerationResult
		err error
	)
	ctx := c.Request.Context()
	if classID := optionalUUID(req.ClassID); classID != nil {
		res, err = h.generation.GenerateForClass(ctx, tenantID, *classID, optionalUUID(req.SectionID), date(req.TargetDate))
	} else {
		res, err = h.generation.GenerateForAllActive(ctx, tenantID, date(req.TargetDate))
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// AddFee handles POST /dues/fees
func (h *DuesHandler) AddFee(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.AddFeeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	amount, ok := h.amount(c, "amount", req.Amount)
	if !ok {
		return
	}

	studentIDs := make([]uuid.UUID, 0, len(req.StudentIDs))
	for _, raw := range req.StudentIDs {
		if id := optionalUUID(raw); id != nil {
			studentIDs = append(studentIDs, *id)
		}
	}

	res, err := h.fees.AddFeeToTarget(c.Request.Context(), appledger.AddFeeRequest{
		TenantID:   tenantID,
		StudentIDs: studentIDs,
		Month:      req.Month,
		Year:       req.Year,
		Title:      req.Title,
		Amount:     amount,
		CategoryID: optionalUUID(req.CategoryID),
		Actor:      middleware.GetActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// MarkOverdue handles POST /dues/mark-overdue
func (h *DuesHandler) MarkOverdue(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.MarkOverdueRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	n, err := h.generation.MarkOverdue(c.Request.Context(), tenantID, date(req.AsOf))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.MarkOverdueResponse{Updated: n})
}

// ApplyAdjustment handles POST /due-items/:id/adjustments
func (h *DuesHandler) ApplyAdjustment(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	dueItemID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ApplyAdjustmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	amount, ok := h.amount(c, "amount", req.Amount)
	if !ok {
		return
	}

	adj, err := h.adjustments.ApplyAdjustment(c.Request.Context(), appledger.ApplyAdjustmentRequest{
		TenantID:   tenantID,
		DueItemID:  dueItemID,
		Type:       ledger.AdjustmentType(req.Type),
		Amount:     amount,
		Reason:     req.Reason,
		AppliedBy:  middleware.GetActor(c),
		CategoryID: optionalUUID(req.CategoryID),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToAdjustmentResponse(adj))
}
