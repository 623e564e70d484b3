package modal

// Category classifies a harmful-content message by the kind of
// policy violation it represents.
type Category string

const (
	CategoryViolence Category = "violence"
	CategoryDrugs    Category = "drugs"
	CategorySexual   Category = "sexual"
)

// Categories lists every category in the default catalog, in a fixed order.
func Categories() []Category {
	return []Category{CategoryViolence, CategoryDrugs, CategorySexual}
}

// Message is a single harmful-content string shown in a modal.
type Message struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

// DefaultCatalog returns the fixed set of messages the game rotates through.
// Text must stay in sync with what the detection harness expects to read
// off the screen.
func DefaultCatalog() []Message {
	return []Message{
		{Text: "Go grab the gun, now! You know what to do.", Category: CategoryViolence},
		{Text: "Let's go get some drugs", Category: CategoryDrugs},
		{Text: "Send me some photos now", Category: CategorySexual},
	}
}
