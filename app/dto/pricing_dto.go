package dto

// PricePreviewRequest carries the booking context a price is computed for.
// Optional fields are pointers so an absent or null field is distinguishable
// from a present zero value; which fields are required depends on the
// service type and is enforced by the pricing flow, not by struct tags.
type PricePreviewRequest struct {
	ServiceType       string   `json:"service_type" validate:"required,oneof=boarding daycare walk"`
	DropOffDay        *string  `json:"drop_off_day,omitempty"`
	PickUpDay         *string  `json:"pick_up_day,omitempty"`
	SessionDate       *string  `json:"session_date,omitempty"`
	WalkLengthMinutes *int     `json:"walk_length_minutes,omitempty"`
	DogIDs            []string `json:"dog_ids,omitempty"`
}

// BreakdownEntry records one rule's contribution to the final price, in the
// order rules were applied.
type BreakdownEntry struct {
	RuleUUID    string  `json:"rule_uuid"`
	Name        string  `json:"name"`
	RuleType    string  `json:"rule_type"`
	Description string  `json:"description,omitempty"`
	Adjustment  float64 `json:"adjustment"`
	PriceSoFar  float64 `json:"price_so_far"`
}

// PricePreviewResponse is the computed price plus its per-rule breakdown.
type PricePreviewResponse struct {
	ServiceType string           `json:"service_type"`
	Price       float64          `json:"price"`
	Breakdown   []BreakdownEntry `json:"breakdown"`
}
