package event

import "time"

// CampaignDispatchedDestination is the default topic for send summaries.
const CampaignDispatchedDestination string = "campaign.dispatched"

// CampaignDispatchedMessage summarizes one send. It never carries addresses.
type CampaignDispatchedMessage struct {
	BatchID      int64     `json:"batch_id"`
	UserID       string    `json:"user_id,omitempty"`
	Total        int       `json:"total"`
	Sent         int       `json:"sent"`
	Failed       int       `json:"failed"`
	DispatchedAt time.Time `json:"dispatched_at"`
}
