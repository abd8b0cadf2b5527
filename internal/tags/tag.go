package tags

// Tag is one entry of the tag dump. VNs is the number of visual novels
// the tag is applied to and orders the cache.
type Tag struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Meta        bool     `json:"meta"`
	Searchable  bool     `json:"searchable"`
	Applicable  bool     `json:"applicable"`
	VNs         int      `json:"vns"`
	Cat         string   `json:"cat"`
	Aliases     []string `json:"aliases"`
	Parents     []int    `json:"parents"`
}
