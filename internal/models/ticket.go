package models

// TicketType classifies what kind of event a recognized ticket is for.
type TicketType string

const (
	TypeFlight  TicketType = "flight"
	TypeTrain   TicketType = "train"
	TypeConcert TicketType = "concert"
	TypeTheater TicketType = "theater"
	TypeGeneric TicketType = "generic"
)

// TimeInfo is a local wall-clock time plus the IANA zone it belongs to.
type TimeInfo struct {
	DateTime string `json:"datetime"`
	Timezone string `json:"timezone"`
}

type LocationInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type DetailsInfo struct {
	Seat      string `json:"seat,omitempty"`
	Gate      string `json:"gate,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// TicketData is the structured event extracted from a ticket image.
// ID is injected by the pipeline once a storage key is allocated; the
// recognition backend never sees it.
type TicketData struct {
	ID         string       `json:"id,omitempty"`
	Type       TicketType   `json:"type"`
	Title      string       `json:"title"`
	Start      TimeInfo     `json:"start"`
	End        *TimeInfo    `json:"end,omitempty"`
	Location   LocationInfo `json:"location"`
	Details    DetailsInfo  `json:"details"`
	Confidence float64      `json:"confidence"`
}
