package inbound

import "strconv"

type CampaignResponse struct {
	State      string   `json:"state"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type GenerateResponse struct {
	CampaignResponse
}

func (GenerateResponse) Message() string {
	return "Draft generated. Review it before sending."
}

type EditRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type EditResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (EditResponse) Message() string {
	return "Draft updated."
}

type PruneRequest struct {
	Addresses []string `json:"addresses"`
}

type PruneResponse struct {
	State      string   `json:"state"`
	Recipients []string `json:"recipients"`
}

type DeliveryResult struct {
	Recipient string `json:"recipient"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type SendResponse struct {
	BatchID string           `json:"batch_id"`
	Subject string           `json:"subject"`
	Body    string           `json:"body"`
	Total   int              `json:"total"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Results []DeliveryResult `json:"results"`
}

func (r SendResponse) Message() string {
	if r.Failed == 0 {
		return "Campaign sent."
	}
	return "Campaign sent with " + strconv.Itoa(r.Failed) + " failed deliveries."
}

type ResetResponse struct {
	State string `json:"state"`
}

func (ResetResponse) Message() string {
	return "Campaign discarded."
}
