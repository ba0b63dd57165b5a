package opssync

import "time"

type TriggerRunRequest struct {
	TodayDate   string `json:"todayDate"`
	TriggeredBy string `json:"triggeredBy"`
}

type ReportRunResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	TodayDate    string  `json:"todayDate"`
	TriggeredBy  string  `json:"triggeredBy"`
	RowCount     int     `json:"rowCount"`
	ArtifactPath string  `json:"artifactPath,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	StartedAt    *string `json:"startedAt"`
	FinishedAt   *string `json:"finishedAt"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type ReportRunPayload struct {
	RunId     string `json:"run_id"`
	TodayDate string `json:"today_date"`
}

const runDateLayout = "2006-01-02"

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
