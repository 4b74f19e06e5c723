package models

// Message is an immutable chat entry. TS is assigned at append time and is
// monotonic non-decreasing within a chat; IDs are monotonic ULIDs, so
// (TS, ID) is a stable total order even under coarse clock resolution.
type Message struct {
	ID     string `json:"id"`
	Chat   string `json:"chat"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}
