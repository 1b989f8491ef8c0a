package email

const (
	subjectLeadDeliveryFmt   = "New %s lead: %s"
	subjectCapacityExhausted = "Your lead balance is used up"
)
