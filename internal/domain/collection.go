package domain

// ActivityStreamsContext is the JSON-LD context attached to served collections.
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// Collection types.
const (
	TypeOrderedCollection     = "OrderedCollection"
	TypeOrderedCollectionPage = "OrderedCollectionPage"
)

// OrderedCollection is the summary document of a paginated feed. Items are
// never inlined at this level; clients follow First.
type OrderedCollection struct {
	Context      string `json:"@context"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	First        string `json:"first"`
	TotalItems   int    `json:"totalItems"`
	OrderedItems []any  `json:"orderedItems"`
}

// OrderedCollectionPage is one page of a feed. TotalItems always reports the
// size of the whole backing list, not of this page.
type OrderedCollectionPage struct {
	Context      string `json:"@context"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	PartOf       string `json:"partOf"`
	Next         string `json:"next,omitempty"`
	TotalItems   int    `json:"totalItems"`
	OrderedItems []any  `json:"orderedItems"`
}
