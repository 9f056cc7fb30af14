package monitor

import "time"

// Status is the last dependency probe result. Unconfigured dependencies
// report as skipped rather than down.
type Status struct {
	Storage     string    `json:"storage"`
	PostgreSQL  Probe     `json:"postgresql"`
	Redis       Probe     `json:"redis"`
	Journal     Probe     `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}

type Probe string

const (
	ProbeUp      Probe = "up"
	ProbeDown    Probe = "down"
	ProbeSkipped Probe = "skipped"
)

func (p Probe) ok() bool {
	return p != ProbeDown
}

// Healthy reports whether every configured dependency answered.
func (s Status) Healthy() bool {
	return s.PostgreSQL.ok() && s.Redis.ok() && s.Journal.ok()
}
