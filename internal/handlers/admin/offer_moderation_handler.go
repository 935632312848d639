package admin

import (
	"errors"
	"io"

	"offer-moderation/internal/handlers/shared"
	"offer-moderation/internal/models"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/services"
	"offer-moderation/internal/utils"
	"offer-moderation/internal/validators"

	"github.com/gin-gonic/gin"
)

type OfferModerationHandler struct {
	moderationService  services.ModerationService
	statisticsService  services.StatisticsService
	autoPublishDefault bool
}

func NewOfferModerationHandler(
	moderationService services.ModerationService,
	statisticsService services.StatisticsService,
	autoPublishDefault bool,
) *OfferModerationHandler {
	return &OfferModerationHandler{
		moderationService:  moderationService,
		statisticsService:  statisticsService,
		autoPublishDefault: autoPublishDefault,
	}
}

// ListOffers returns one page of offers matching the query filters
func (h *OfferModerationHandler) ListOffers(c *gin.Context) {
	status := c.Query("status")
	if errs := validators.ValidateStatusFilter(status); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	from, err := shared.ParseDateQuery(c.Query("from"), false)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"from": "from must be a date or RFC 3339 timestamp"})
		return
	}
	to, err := shared.ParseDateQuery(c.Query("to"), true)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"to": "to must be a date or RFC 3339 timestamp"})
		return
	}

	params := utils.GetPaginationParams(c)
	filter := &interfaces.OfferFilter{
		Status:      models.OfferStatus(status),
		CreatedFrom: from,
		CreatedTo:   to,
		Search:      params.Search,
		Pagination:  params,
	}

	offers, total, err := h.moderationService.ListOffers(c.Request.Context(), filter)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	if offers == nil {
		offers = []*models.DriverOffer{}
	}

	utils.SuccessResponseWithMeta(c, "Offers retrieved successfully",
		models.OfferListResponse{Offers: offers, Total: total},
		&utils.Meta{Pagination: utils.CreatePaginationMeta(params, total)},
	)
}

// GetOffer returns a single offer
func (h *OfferModerationHandler) GetOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}

	offer, err := h.moderationService.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer retrieved successfully", gin.H{"offer": offer})
}

// GetStatistics returns per-status offer counts
func (h *OfferModerationHandler) GetStatistics(c *gin.Context) {
	snapshot, err := h.statisticsService.Snapshot(c.Request.Context())
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Statistics retrieved successfully", snapshot)
}

// GetAuditHistory returns the audit entries of an offer, oldest first
func (h *OfferModerationHandler) GetAuditHistory(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}

	raw := utils.GetPaginationParams(c)
	params := utils.NewPaginationParams(raw.Limit, raw.Offset, "created_at", "asc", "")

	entries, total, err := h.moderationService.GetAuditHistory(c.Request.Context(), offerID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}

	utils.SuccessResponseWithMeta(c, "Audit history retrieved successfully",
		models.AuditHistoryResponse{Entries: entries, Total: total},
		&utils.Meta{Pagination: utils.CreatePaginationMeta(params, total)},
	)
}

// ApproveOffer approves a pending offer, optionally publishing it at once
func (h *OfferModerationHandler) ApproveOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	var request models.ApproveOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	autoPublish := h.autoPublishDefault
	if request.AutoPublish != nil {
		autoPublish = *request.AutoPublish
	}

	offer, err := h.moderationService.Approve(c.Request.Context(), offerID, actorID, autoPublish)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	message := "Offer approved successfully"
	if offer.Status == models.OfferStatusPublished {
		message = "Offer approved and published successfully"
	}
	utils.SuccessResponse(c, message, gin.H{"offer": offer})
}

// RejectOffer rejects a pending offer with a reason
func (h *OfferModerationHandler) RejectOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	var request models.RejectOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateRejectOffer(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	offer, err := h.moderationService.Reject(c.Request.Context(), offerID, actorID, request.Reason)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer rejected successfully", gin.H{"offer": offer})
}

// PublishOffer publishes an approved offer
func (h *OfferModerationHandler) PublishOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	offer, err := h.moderationService.Publish(c.Request.Context(), offerID, actorID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer published successfully", gin.H{"offer": offer})
}

// ArchiveOffer archives a reviewed offer
func (h *OfferModerationHandler) ArchiveOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	actorID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	offer, err := h.moderationService.Archive(c.Request.Context(), offerID, actorID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer archived successfully", gin.H{"offer": offer})
}
