package entity

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityWarning Severity = "WARNING"
)

type RefundRequest struct {
	BookingID      string
	Amount         Money
	TransactionRef string
	IdempotencyKey string
}
