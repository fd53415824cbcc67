package example

type Category string

const (
	CategoryPothole     Category = "pothole"
	CategoryStreetLight Category = "street_light"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusEscalated Status = "escalated"
)

type NotificationKind string

const (
	NotificationWarning NotificationKind = "warning"
)

type Issue struct {
	Category Category
	Status   Status
	Title    string
}

type Notification struct {
	Kind NotificationKind
}

func bad() {
	i := &Issue{}
	i.Status = "open" // want "enum field Status assigned string literal"

	n := &Notification{}
	n.Kind = "urgent" // want "enum field Kind assigned string literal"

	_ = Issue{Category: "graffiti"} // want "enum field Category assigned string literal"
}

func good() {
	i := &Issue{}
	i.Status = StatusEscalated // OK: using constant
	i.Title = "broken lamp"    // OK: not an enum

	n := &Notification{Kind: NotificationWarning} // OK: using constant
	_ = n
}

func alsoGood() {
	// OK: Variable, not literal
	category := CategoryStreetLight
	i := &Issue{Category: category, Title: "dark corner"}
	_ = i
}
