package daemon

import "github.com/windvault/windvault/internal/models"

type V1ErrorResponse struct {
	Error string `json:"error"`
}

type V1StatusResponse struct {
	Tenant    string         `json:"tenant"`
	Orders    map[string]int `json:"orders"`
	Windows   V1WindowCounts `json:"windows"`
	Requests  int            `json:"pending_requests"`
	LastSync  string         `json:"last_sync,omitempty"`
	SyncStale bool           `json:"sync_partial"`
	Metrics   bool           `json:"metrics_enabled"`
	Version   string         `json:"version"`
}

type V1WindowCounts struct {
	Total    int `json:"total"`
	Assigned int `json:"assigned"`
	Free     int `json:"free"`
}

type V1OrderCreateRequest struct {
	StaffID   string                  `json:"staff_id"`
	Amount    float64                 `json:"amount"`
	Date      string                  `json:"date,omitempty"`
	Snapshots []models.WindowSnapshot `json:"window_snapshots"`
}

type V1OrderCompleteRequest struct {
	Results []models.WindowResult `json:"window_results"`
}

type V1OrderPauseRequest struct {
	CompletedAmount float64 `json:"completed_amount"`
}

type V1OrderResumeRequest struct {
	StaffID string `json:"staff_id,omitempty"`
}

type V1ExecutionEntry struct {
	StaffID   string  `json:"staff_id"`
	StaffName string  `json:"staff_name"`
	Amount    float64 `json:"amount"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

type V1Order struct {
	ID              string                  `json:"id"`
	StaffID         string                  `json:"staff_id"`
	Amount          float64                 `json:"amount"`
	Date            string                  `json:"date"`
	Status          string                  `json:"status"`
	CompletedAmount float64                 `json:"completed_amount"`
	RemainingAmount float64                 `json:"remaining_amount"`
	Snapshots       []models.WindowSnapshot `json:"window_snapshots,omitempty"`
	Results         []models.WindowResult   `json:"window_results,omitempty"`
	History         []V1ExecutionEntry      `json:"execution_history,omitempty"`
	TotalConsumed   int64                   `json:"total_consumed"`
	Loss            int64                   `json:"loss"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
}

type V1Window struct {
	ID           string `json:"id"`
	MachineID    string `json:"machine_id"`
	WindowNumber int    `json:"window_number"`
	GoldBalance  int64  `json:"gold_balance"`
	UserID       string `json:"user_id,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type V1WindowAssignRequest struct {
	StaffID string `json:"staff_id"`
}

type V1WindowRechargeRequest struct {
	Delta int64 `json:"delta"`
}

type V1Machine struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Provider  string `json:"provider,omitempty"`
	Windows   int    `json:"windows"`
	CreatedAt string `json:"created_at"`
}

type V1MachinePurchaseRequest struct {
	Name           string  `json:"name"`
	Provider       string  `json:"provider,omitempty"`
	WindowCount    int     `json:"window_count"`
	InitialBalance int64   `json:"initial_balance,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	Note           string  `json:"note,omitempty"`
}

type V1MachinePurchaseResponse struct {
	Machine   V1Machine `json:"machine"`
	WindowIDs []string  `json:"window_ids"`
}

type V1Request struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	StaffName   string `json:"staff_name"`
	Type        string `json:"type"`
	WindowID    string `json:"window_id,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
	ProcessedBy string `json:"processed_by,omitempty"`
}

type V1RequestSubmitRequest struct {
	Type     string `json:"type"`
	WindowID string `json:"window_id,omitempty"`
}

type V1RequestProcessRequest struct {
	Approved bool `json:"approved"`
}

type V1StaffCreateRequest struct {
	Name string `json:"name"`
}

type V1Staff struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type V1Purchase struct {
	ID        string  `json:"id"`
	MachineID string  `json:"machine_id,omitempty"`
	Quantity  int     `json:"quantity"`
	Cost      float64 `json:"cost"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type V1Settings struct {
	GoldRate    float64 `json:"gold_rate"`
	WindowPrice float64 `json:"window_price"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type V1Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts"`
	Kind     string `json:"kind"`
	WindowID string `json:"window_id,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Msg      string `json:"msg,omitempty"`
	JSON     string `json:"json,omitempty"`
}
