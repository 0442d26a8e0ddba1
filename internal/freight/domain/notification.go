package domain

// NotificationKind selects the message template the dispatcher renders.
type NotificationKind string

const (
	NotifyPasswordResetCode         NotificationKind = "password-reset-code"
	NotifyPasswordResetConfirmation NotificationKind = "password-reset-confirmation"
	NotifyEmailVerification         NotificationKind = "email-verification"
	NotifyQuoteReceived             NotificationKind = "quote-received"
	NotifyQuotePriced               NotificationKind = "quote-priced"
	NotifyQuoteResponded            NotificationKind = "quote-responded"
	NotifyShipmentCreated           NotificationKind = "shipment-created"
	NotifyShipmentStatus            NotificationKind = "shipment-status"
	NotifyKYCApproved               NotificationKind = "kyc-approved"
	NotifyKYCRejected               NotificationKind = "kyc-rejected"
	NotifyMFAEnabled                NotificationKind = "mfa-enabled"
	NotifyContactMessage            NotificationKind = "contact-message"
	NotifyCustomerMessage           NotificationKind = "customer-message"
)
