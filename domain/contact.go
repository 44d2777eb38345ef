package domain

import "strings"

// Contact is a single address-book entry. Timestamps are epoch milliseconds.
type Contact struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	Company        string   `json:"company,omitempty"`
	City           string   `json:"city,omitempty"`
	State          string   `json:"state,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
	LastActivityAt int64    `json:"lastActivityAt"`
}

// ContactInput carries the caller-supplied fields for a new contact.
type ContactInput struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Company   string   `json:"company,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Validate trims the input in place and reports the first problem found.
func (in *ContactInput) Validate() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FirstName == "" {
		return Validationf("firstName is required")
	}
	if in.LastName == "" {
		return Validationf("lastName is required")
	}
	if in.Email == "" {
		return Validationf("email is required")
	}
	if !strings.Contains(in.Email, "@") {
		return Validationf("email %q is not an email address", in.Email)
	}
	return nil
}

// SearchText reports whether any of the contact's searchable fields contain
// the already-lowercased needle. Name matching joins first and last name so
// a query can span both.
func (c Contact) SearchText(needle string) bool {
	if needle == "" {
		return true
	}
	fields := []string{
		c.FirstName + " " + c.LastName,
		c.Email,
		c.Company,
		c.City,
		c.State,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
