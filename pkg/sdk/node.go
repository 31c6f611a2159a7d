package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	statusEndpoint  = "/status"
	privacyEndpoint = "/privacy"
	tasksEndpoint   = "/tasks"
	inputEndpoint   = "/input"
)

type Throttle struct {
	Level           string  `json:"level"`
	Intensity       float64 `json:"intensity"`
	AllowBackground bool    `json:"allow_background"`
	LastLatencyMS   float64 `json:"last_latency_ms"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	TickCount       uint64  `json:"tick_count"`
}

type Inference struct {
	TotalRequests uint64            `json:"total_requests"`
	Decisions     map[string]uint64 `json:"decisions"`
	Modes         map[string]uint64 `json:"modes"`
	Latency       struct {
		LastMS float64 `json:"last_ms"`
		AvgMS  float64 `json:"avg_ms"`
		MinMS  float64 `json:"min_ms"`
		MaxMS  float64 `json:"max_ms"`
	} `json:"latency"`
}

type Training struct {
	RoundsCompleted uint32  `json:"rounds_completed"`
	TotalBatches    uint64  `json:"total_batches"`
	TotalEpsilon    float32 `json:"total_epsilon"`
}

type Status struct {
	NodeID         string         `json:"node_id"`
	Tier           string         `json:"tier"`
	Tick           uint64         `json:"tick"`
	Throttle       Throttle       `json:"throttle"`
	Pending        map[string]int `json:"pending"`
	TicksScheduled uint64         `json:"ticks_scheduled"`
	TasksExecuted  uint64         `json:"tasks_executed"`
	Inference      Inference      `json:"inference"`
	Training       *Training      `json:"training,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
}

type Privacy struct {
	Enabled   bool    `json:"enabled"`
	Budget    float32 `json:"budget"`
	Total     float32 `json:"total_epsilon"`
	Remaining float32 `json:"remaining"`
	Rounds    uint64  `json:"rounds"`
	Exhausted bool    `json:"exhausted"`
}

type Task struct {
	Kind string `json:"kind"`
	Lane string `json:"lane,omitempty"`
}

type input struct {
	Text string `json:"text"`
}

func (sdk *nodeSDK) Status() (Status, error) {
	body, err := sdk.processRequest(http.MethodGet, sdk.nodeURL+statusEndpoint, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *nodeSDK) Privacy() (Privacy, error) {
	return sdk.privacy(http.MethodGet, sdk.nodeURL+privacyEndpoint)
}

func (sdk *nodeSDK) ResetPrivacy() (Privacy, error) {
	return sdk.privacy(http.MethodPost, sdk.nodeURL+privacyEndpoint+"/reset")
}

func (sdk *nodeSDK) privacy(method, url string) (Privacy, error) {
	body, err := sdk.processRequest(method, url, nil, http.StatusOK)
	if err != nil {
		return Privacy{}, err
	}

	var p Privacy
	if err := json.Unmarshal(body, &p); err != nil {
		return Privacy{}, err
	}

	return p, nil
}

func (sdk *nodeSDK) EnqueueTask(kind string) (Task, error) {
	data, err := json.Marshal(Task{Kind: kind})
	if err != nil {
		return Task{}, err
	}

	body, err := sdk.processRequest(http.MethodPost, sdk.nodeURL+tasksEndpoint, data, http.StatusAccepted)
	if err != nil {
		return Task{}, err
	}

	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, err
	}

	return t, nil
}

func (sdk *nodeSDK) SendInput(text string) error {
	data, err := json.Marshal(input{Text: text})
	if err != nil {
		return err
	}

	_, err = sdk.processRequest(http.MethodPost, sdk.nodeURL+inputEndpoint, data, http.StatusAccepted)

	return err
}
