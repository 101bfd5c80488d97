package detector

// DateFormat is a known ordering of the date token in an entry start.
type DateFormat struct {
	Name     string   // Human-readable name
	Layout   string   // Go time layout for parsing
	Examples []string // Example date tokens
	DayFirst bool     // True for DD/MM orderings
}

// DefaultFormats returns the built-in date orderings to detect.
// Month-first formats come first; on a tie they win.
func DefaultFormats() []*DateFormat {
	return []*DateFormat{
		{
			Name:     "Month first, 2-digit year",
			Layout:   "1/2/06",
			Examples: []string{"3/6/21", "12/31/21"},
		},
		{
			Name:     "Day first, 2-digit year",
			Layout:   "2/1/06",
			Examples: []string{"6/3/21", "31/12/21"},
			DayFirst: true,
		},
		{
			Name:     "Month first, 4-digit year",
			Layout:   "1/2/2006",
			Examples: []string{"3/6/2021", "12/31/2021"},
		},
		{
			Name:     "Day first, 4-digit year",
			Layout:   "2/1/2006",
			Examples: []string{"6/3/2021", "31/12/2021"},
			DayFirst: true,
		},
	}
}
