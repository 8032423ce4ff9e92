package domain

// Discrepancy labels. Downstream consumers pattern-match on these strings,
// so they must not change.
const (
	LabelAppearing        = "Appearing"
	LabelAPIFailed        = "API request failed"
	LabelRecall           = "Vehicle with Recall"
	LabelInTransit        = "In Transit - Not expected in HomeNet"
	LabelCourtesy         = "Courtesy Vehicle"
	LabelOtherStatus      = "Other Inventory Status: "
	LabelExclusiveDealer  = "Exclusive to Dealer.com Website"
	LabelExclusiveHomeNet = "Exclusive to HomeNet"
)

// OtherStatusLabel builds the label for an unrecognised inventory status.
func OtherStatusLabel(name string) string {
	return LabelOtherStatus + name
}
