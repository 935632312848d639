package driver

import (
	"offer-moderation/internal/handlers/shared"
	"offer-moderation/internal/models"
	"offer-moderation/internal/services"
	"offer-moderation/internal/utils"
	"offer-moderation/internal/validators"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	offerService services.OfferService
}

func NewOfferHandler(offerService services.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// CreateOffer creates a draft, or submits it straight away when submit is set
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	driverID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	var request models.CreateOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if errs := validators.ValidateCreateOffer(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	offer, err := h.offerService.Create(c.Request.Context(), driverID, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	message := "Offer created successfully"
	if offer.Status == models.OfferStatusPendingReview {
		message = "Offer submitted for review"
	}
	utils.CreatedResponse(c, message, gin.H{"offer": offer})
}

// SubmitOffer sends a draft or rejected offer to moderation
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	driverID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	offer, err := h.offerService.Submit(c.Request.Context(), offerID, driverID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer submitted for review", gin.H{"offer": offer})
}

// GetOffer returns one of the driver's own offers
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, ok := shared.ObjectIDParam(c, "id")
	if !ok {
		return
	}
	driverID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	offer, err := h.offerService.GetOwn(c.Request.Context(), offerID, driverID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer retrieved successfully", gin.H{"offer": offer})
}

// ListOffers returns the driver's offers, newest first
func (h *OfferHandler) ListOffers(c *gin.Context) {
	driverID, ok := shared.CurrentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	offers, total, err := h.offerService.ListOwn(c.Request.Context(), driverID, params)
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
