package domain

import "encoding/json"

// KillHistoryCapacity is the number of kills retained per player
const KillHistoryCapacity = 10

// KillRecord is one entry of a player's kill history
type KillRecord struct {
	MobType    string `json:"mobType"`
	XPGained   int    `json:"xpGained"`
	Timestamp  int64  `json:"timestamp"`
	Location   string `json:"location"`
	VictimName string `json:"victimName"`
}

// KillHistory is a fixed-capacity ring of the most recent kills.
// The zero value is an empty history. Copying the value copies the ring.
type KillHistory struct {
	buf  [KillHistoryCapacity]KillRecord
	head int // index of the newest entry
	size int
}

// Push records a kill as the newest entry, evicting the oldest when full
func (h *KillHistory) Push(r KillRecord) {
	h.head = (h.head + KillHistoryCapacity - 1) % KillHistoryCapacity
	if h.size == 0 {
		h.head = 0
	}
	h.buf[h.head] = r
	if h.size < KillHistoryCapacity {
		h.size++
	}
}

// Len returns the number of retained kills
func (h *KillHistory) Len() int {
	return h.size
}

// At returns the i-th most recent kill (0 is the newest)
func (h *KillHistory) At(i int) KillRecord {
	if i < 0 || i >= h.size {
		panic("domain: kill history index out of range")
	}
	return h.buf[(h.head+i)%KillHistoryCapacity]
}

// Records returns the kills newest first
func (h *KillHistory) Records() []KillRecord {
	out := make([]KillRecord, h.size)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// MarshalJSON encodes the history as a newest-first array
func (h KillHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Records())
}

// UnmarshalJSON decodes a newest-first array, keeping at most KillHistoryCapacity entries
func (h *KillHistory) UnmarshalJSON(data []byte) error {
	var records []KillRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	*h = KillHistory{}
	if len(records) > KillHistoryCapacity {
		records = records[:KillHistoryCapacity]
	}
	for i := len(records) - 1; i >= 0; i-- {
		h.Push(records[i])
	}
	return nil
}
