package validators

import (
	"strconv"
	"strings"

	"offer-moderation/internal/models"
)

func ValidateCreateOffer(req *models.CreateOfferRequest) ValidationErrors {
	errs := ValidateStruct(req)

	if req.SeatsFree != nil && *req.SeatsFree > req.SeatsTotal {
		errs = append(errs, ValidationError{
			Field:   "seats_free",
			Tag:     "ltefield",
			Value:   strconv.Itoa(*req.SeatsFree),
			Message: "seats_free must not exceed seats_total",
		})
	}
	if strings.EqualFold(strings.TrimSpace(req.Origin), strings.TrimSpace(req.Destination)) && req.Origin != "" {
		errs = append(errs, ValidationError{
			Field:   "destination",
			Tag:     "nefield",
			Value:   req.Destination,
			Message: "destination must differ from origin",
		})
	}
	return errs
}

func ValidateRejectOffer(req *models.RejectOfferRequest) ValidationErrors {
	return ValidateStruct(req)
}

// ValidateStatusFilter accepts an empty status or one of the known ones.
func ValidateStatusFilter(status string) ValidationErrors {
	if status == "" || models.OfferStatus(status).IsValid() {
		return nil
	}
	return ValidationErrors{{
		Field:   "status",
		Tag:     "oneof",
		Value:   status,
		Message: "status must be one of " + joinStatuses(),
	}}
}

func ValidateObjectIDParam(name, value string) ValidationErrors {
	if IsValidObjectID(value) {
		return nil
	}
	return ValidationErrors{{
		Field:   name,
		Tag:     "object_id",
		Value:   value,
		Message: "Invalid ID format",
	}}
}

func joinStatuses() string {
	names := make([]string, 0, len(models.AllOfferStatuses))
	for _, status := range models.AllOfferStatuses {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
