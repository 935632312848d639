package models

import "time"

type CreateOfferRequest struct {
	Origin           string    `json:"origin" validate:"required,max=200"`
	Destination      string    `json:"destination" validate:"required,max=200"`
	OriginPoint      *GeoPoint `json:"origin_point,omitempty"`
	DestinationPoint *GeoPoint `json:"destination_point,omitempty"`
	SeatsTotal       int       `json:"seats_total" validate:"required,min=1,max=8"`
	SeatsFree        *int      `json:"seats_free,omitempty" validate:"omitempty,min=0,max=8"`
	PricePerSeat     float64   `json:"price_per_seat" validate:"gte=0"`
	Currency         string    `json:"currency,omitempty" validate:"omitempty,currency_code"`
	StartAt          time.Time `json:"start_at" validate:"required"`
	Submit           bool      `json:"submit"`
}

type ApproveOfferRequest struct {
	AutoPublish *bool `json:"auto_publish"`
}

// RejectOfferRequest leaves the reason unchecked here so that a blank reason
// surfaces as the domain validation error.
type RejectOfferRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type OfferListResponse struct {
	Offers []*DriverOffer `json:"offers"`
	Total  int64          `json:"total"`
}

type AuditHistoryResponse struct {
	Entries []*AuditEntry `json:"entries"`
	Total   int64         `json:"total"`
}
