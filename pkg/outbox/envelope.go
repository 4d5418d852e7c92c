package outbox

import "time"

// EmailEnvelope is the stable payload published to the email dispatch topic.
type EmailEnvelope struct {
	MessageID  string    `json:"messageId"`
	Recipient  string    `json:"recipient"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	OccurredAt time.Time `json:"occurredAt"`
}
