package models

// Subdomain represents a discovered subdomain
type Subdomain struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// LiveHost represents a host that answered an HTTP probe
type LiveHost struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	StatusCode string `json:"status_code"`
	Technology string `json:"technology"`
	Ports      []Port `json:"ports,omitempty"`
}

// Port represents an open port with service information.
// Guessed marks ports filled in from the safe default set when the
// scanner reported findings it did not write out.
type Port struct {
	Number  int    `json:"port_number"`
	Service string `json:"service"`
	Guessed bool   `json:"guessed,omitempty"`
}
