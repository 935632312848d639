package utils

const (
	AppName    = "OfferModeration"
	AppVersion = "1.0.0"

	DefaultCurrency = "USD"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Offers
	MaxSeatsPerOffer      = 8
	MaxRejectionReasonLen = 500
	MaxOfferLabelLength   = 200

	// Audit retry
	DefaultAuditRetryAttempts = 5
	DefaultAuditRetryQueue    = 1024
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrValidationFailed = "validation failed"
)

// Context keys set by the auth middleware
const (
	ContextUserID    = "user_id"
	ContextUserType  = "user_type"
	ContextRequestID = "request_id"
)

// User types carried in access tokens
const (
	UserTypeAdmin  = "admin"
	UserTypeDriver = "driver"
)

// Pub/Sub channels
const (
	ChannelOfferModeration = "offers:moderation"
)

// Websocket rooms
const (
	RoomModerators = "moderators"
)

var SortableOfferFields = []string{"created_at", "updated_at", "start_at", "price_per_seat"}
