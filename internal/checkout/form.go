package checkout

import (
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
)

// MissingFields names the required checkout fields that are blank after trimming.
func MissingFields(a domain.Address) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"surname", a.Surname},
		{"street", a.Street},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"phone", a.Phone},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// FormComplete gates the pay action whatever the shipping outcome.
func FormComplete(a domain.Address) bool {
	return len(MissingFields(a)) == 0
}
