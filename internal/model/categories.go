package model

type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var categories = []Category{
	{
		Name:        "Tech Events",
		Description: "Technical competitions and challenges focused on programming, development, and artificial intelligence.",
		Icon:        "code",
	},
	{
		Name:        "Business Competitions",
		Description: "Business-focused events including case study competitions and entrepreneurship challenges.",
		Icon:        "business",
	},
	{
		Name:        "Gaming Tournaments",
		Description: "Competitive gaming events for both e-sports and console gaming enthusiasts.",
		Icon:        "sports_esports",
	},
	{
		Name:        "General Events",
		Description: "Various general events including debates, photography contests, and quiz competitions.",
		Icon:        "event",
	},
}

// Categories returns a copy of the fixed event catalogue.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func ValidCategory(name string) bool {
	for _, c := range categories {
		if c.Name == name {
			return true
		}
	}
	return false
}
