package game

// EventKind names an outbound notification.
type EventKind string

const (
	EventLevelUp           EventKind = "levelUp"
	EventOrderComplete     EventKind = "orderComplete"
	EventBulkComplete      EventKind = "bulkComplete"
	EventCompanyCreated    EventKind = "companyCreated"
	EventCompanyDestroyed  EventKind = "companyDestroyed"
	EventInvestment        EventKind = "investment"
	EventTransfer          EventKind = "transfer"
	EventPFMilestone       EventKind = "pfMilestone"
	EventNetWorthMilestone EventKind = "netWorthMilestone"
)

// Event is a notification emitted by a simulation operation. Only the
// fields relevant to Kind are set.
type Event struct {
	Kind     EventKind `json:"kind"`
	Player   string    `json:"player,omitempty"`
	Company  string    `json:"company,omitempty"`
	Ore      string    `json:"ore,omitempty"`
	Qty      int64     `json:"qty,omitempty"`
	Tier     float64   `json:"tier,omitempty"`
	Payout   float64   `json:"payout,omitempty"`
	Amount   float64   `json:"amount,omitempty"`
	PF       float64   `json:"pf,omitempty"`
	NetWorth float64   `json:"netWorth,omitempty"`
	Level    int       `json:"level,omitempty"`
}
