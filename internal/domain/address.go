package domain

import "strings"

type Zone string

const (
	ZoneMainland Zone = "peninsula"
	ZoneCanarias Zone = "canarias"
)

// Address is the checkout form. Zone only matters when the country is the home market.
type Address struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	Zone       Zone   `json:"zone,omitempty"`
}

func (a Address) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.Name) + " " + strings.TrimSpace(a.Surname))
}
