package amqp

import (
	"encoding/json"
	"time"

	"rateios/internal/core"
)

// MessageTypeReportReady is the AMQP type property of ReportReadyMessage.
const MessageTypeReportReady = "rateios.report_ready"

// FileRef points at one workbook produced by a run.
type FileRef struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	BudgetID string `json:"budget_id,omitempty"`
	Rows     int    `json:"rows"`
	OK       bool   `json:"ok"`
	Location string `json:"location,omitempty"`
}

// ReportReadyMessage tells downstream consumers that a run finished and
// where its workbooks are.
type ReportReadyMessage struct {
	RunID           string    `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Budgets         int       `json:"budgets"`
	FailedBudgetIDs []string  `json:"failed_budget_ids"`
	DetailRows      int       `json:"detail_rows"`
	GroupedRows     int       `json:"grouped_rows"`
	Files           []FileRef `json:"files"`
}

// NewReportReadyMessage builds the message from a run summary. locations
// maps local paths to uploaded object URLs and may be nil.
func NewReportReadyMessage(s core.RunSummary, locations map[string]string) *ReportReadyMessage {
	msg := &ReportReadyMessage{
		RunID:           s.RunID,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		Budgets:         s.Budgets,
		FailedBudgetIDs: append([]string{}, s.FailedBudgetIDs...),
		DetailRows:      s.DetailRows,
		GroupedRows:     s.GroupedRows,
		Files:           make([]FileRef, 0, len(s.Files)),
	}
	for _, f := range s.Files {
		msg.Files = append(msg.Files, FileRef{
			Kind:     f.Kind,
			Path:     f.Path,
			BudgetID: f.BudgetID,
			Rows:     f.Rows,
			OK:       f.OK(),
			Location: locations[f.Path],
		})
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ReportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportReadyMessageFromJSON decodes a message.
func ReportReadyMessageFromJSON(data []byte) (*ReportReadyMessage, error) {
	var msg ReportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
