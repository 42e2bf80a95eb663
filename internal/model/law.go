package model

import "time"

// HistoryLimit bounds TrackedLaw.History; the oldest entries are evicted first.
const HistoryLimit = 10

// TrackedLaw is a statute under observation. Name is the primary key.
// JSON keys match the field names used by the law.go.kr tooling so exported
// tracked_laws.json files stay readable by the dashboard.
type TrackedLaw struct {
	Name string `json:"법령명"`

	// SequenceID (법령일련번호, "MST") changes on every revision of the statute.
	SequenceID    string `json:"법령일련번호"`
	LawID         string `json:"법령ID"`
	PubDate       string `json:"공포일자"`
	EffectiveDate string `json:"시행일자"`

	// LastPubDate is the publication date observed by the last check and is
	// the fingerprint compared by the change detector.
	LastPubDate string `json:"마지막공포일자"`

	AddedAt     time.Time      `json:"추가일시"`
	LastChecked *time.Time     `json:"마지막확인"`
	ChangeCount int            `json:"변경횟수"`
	History     []HistoryEntry `json:"변경내역,omitempty"`
}

// HistoryEntry is one line of a law's bounded change history.
type HistoryEntry struct {
	CheckedAt   time.Time `json:"확인시각"`
	Description string    `json:"변경내용"`
	Artifact    *string   `json:"신구대조표"`
}

// PushHistory prepends e and trims the history to HistoryLimit entries.
func (l *TrackedLaw) PushHistory(e HistoryEntry) {
	h := make([]HistoryEntry, 0, len(l.History)+1)
	h = append(h, e)
	h = append(h, l.History...)
	if len(h) > HistoryLimit {
		h = h[:HistoryLimit]
	}
	l.History = h
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (l TrackedLaw) Clone() TrackedLaw {
	out := l
	if l.LastChecked != nil {
		t := *l.LastChecked
		out.LastChecked = &t
	}
	if l.History != nil {
		out.History = make([]HistoryEntry, len(l.History))
		for i, e := range l.History {
			out.History[i] = e
			if e.Artifact != nil {
				a := *e.Artifact
				out.History[i].Artifact = &a
			}
		}
	}
	return out
}

// UpdateRecord is the immutable result of one detected change.
type UpdateRecord struct {
	LawName        string    `json:"법령명"`
	PrevPubDate    string    `json:"이전공포일자"`
	CurPubDate     string    `json:"현재공포일자"`
	PrevSequenceID string    `json:"이전법령일련번호"`
	CurSequenceID  string    `json:"현재법령일련번호"`
	CheckedAt      time.Time `json:"확인일시"`
	Artifact       *string   `json:"신구대조표"`
}

// Snapshot is an immutable capture of a statute's full detail document.
type Snapshot struct {
	ID         string    `json:"id"`
	LawName    string    `json:"법령명"`
	SequenceID string    `json:"법령일련번호"`
	SavedAt    time.Time `json:"저장일시"`
	Document   *Document `json:"상세정보"`
}

// SearchResult is one hit of the statute search endpoint.
type SearchResult struct {
	SequenceID    string `json:"법령일련번호"`
	LawID         string `json:"법령ID"`
	Name          string `json:"법령명한글"`
	PubDate       string `json:"공포일자"`
	EffectiveDate string `json:"시행일자"`
}
