package domain

import "time"

// BackendMetric is one element of the metrics feed
type BackendMetric struct {
	Address    string  `json:"Address"`
	Alive      bool    `json:"Alive"`
	Latency    float64 `json:"Latency"`
	ErrorCount int64   `json:"ErrorCount"`
}

// BackendStatus is one row of the status feed's backend table
type BackendStatus struct {
	Address     string  `json:"Address"`
	Alive       bool    `json:"Alive"`
	ActiveConns int64   `json:"ActiveConns"`
	Latency     float64 `json:"Latency"`
	ErrorCount  int64   `json:"ErrorCount"`
}

// DecisionLogEntry is an authoritative record of a real routing decision
type DecisionLogEntry struct {
	Time    time.Time `json:"time"`
	Algo    string    `json:"algo"`
	Backend string    `json:"backend"`
	Reason  string    `json:"reason"`
}

// StatusReport is the status feed document
type StatusReport struct {
	CurrentAlgo     string             `json:"current_algo"`
	AdaptiveReason  string             `json:"adaptive_reason"`
	SelectedBackend string             `json:"selected_backend"`
	Backends        []BackendStatus    `json:"backends"`
	DecisionLog     []DecisionLogEntry `json:"decision_log"`
}
