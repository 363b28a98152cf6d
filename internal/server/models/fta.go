package models

// FTA is a free trade agreement between a set of countries.
type FTA struct {
	ID        int64
	Name      string
	Countries []string
}

func (f *FTA) String() string {
	if f == nil {
		return ""
	}
	return f.Name
}

// Covers reports whether country is party to the agreement.
func (f *FTA) Covers(country string) bool {
	for _, c := range f.Countries {
		if c == country {
			return true
		}
	}
	return false
}
