package handler

import (
	"time"

	"patient-payments/internal/adapter/http/dto"
	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"
	"patient-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultAuditLimit = 100

// AuditHandler serves read access to the audit trail.
type AuditHandler struct {
	audit ports.AuditTrail
}

func NewAuditHandler(audit ports.AuditTrail) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Query handles GET /api/v1/audit. Entries stream from the trail in key
// order and stop at the limit.
func (h *AuditHandler) Query(c *gin.Context) {
	var params dto.AuditQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&params)

	limit := params.Limit
	if limit == 0 {
		limit = defaultAuditLimit
	}

	out := dto.AuditListResponse{Items: []dto.AuditEntryResponse{}}
	for entry, err := range h.audit.Query(c.Request.Context(), auditFilterFrom(params)) {
		if err != nil {
			response.Error(c, err)
			return
		}
		if len(out.Items) == limit {
			out.Truncated = true
			break
		}
		out.Items = append(out.Items, toAuditEntryResponse(entry))
	}
	out.Count = len(out.Items)

	response.OK(c, out)
}

func auditFilterFrom(p dto.AuditQueryParams) domain.AuditFilter {
	f := domain.AuditFilter{
		Action:  domain.AuditAction(p.Action),
		ActorID: p.ActorID,
		IP:      p.IP,
	}
	if p.TransactionID != "" {
		f.Details = map[string]string{"transactionId": p.TransactionID}
	}
	if !p.From.IsZero() || !p.To.IsZero() {
		f.DateRange = &domain.DateRange{Start: p.From, End: p.To}
	}
	return f
}

func toAuditEntryResponse(e domain.AuditEntry) dto.AuditEntryResponse {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return dto.AuditEntryResponse{
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Sequence:  e.Sequence,
		Action:    string(e.Action),
		ActorID:   e.ActorID,
		ClientIP:  e.Client.IP,
		UserAgent: e.Client.UserAgent,
		Details:   details,
	}
}
