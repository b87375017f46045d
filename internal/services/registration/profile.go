// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registration

import (
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
)

// ConditionalDocument is required only when Field has the value When.
type ConditionalDocument struct {
	Name    string
	Field   string
	When    string
	Message string
}

// Profile describes what a registration of one account kind needs.
type Profile struct {
	Kind                  models.Kind
	Scope                 regnumber.Scope
	RequiredFields        []string
	RequiredDocuments     []string
	ConditionalDocuments  []ConditionalDocument
	DocumentAliases       map[string]string
	RequiresApproval      bool
	MaxUnverifiedAttempts int
}

var UserProfile = Profile{
	Kind:  models.KindUser,
	Scope: regnumber.Candidate,
	RequiredFields: []string{
		"name", "email", "phone", "password", "guardian", "address", "currentAddress",
		"dob", "gender", "bankAccNumber", "bankName", "ifsc", "volunteerName",
		"pwdCategory", "entrepreneurshipInterest",
	},
	RequiredDocuments: []string{
		"image", "undertaking", "policeVerification", "educationQualification", "bankPassbook",
	},
	ConditionalDocuments: []ConditionalDocument{
		{Name: "pwdCertificate", Field: "pwdCategory", When: "Yes", Message: "PWD Certificate is required."},
		{Name: "bplCertificate", Field: "entrepreneurshipInterest", When: "Yes", Message: "BPL/marginalized category certificate is required."},
	},
	DocumentAliases:       map[string]string{"educationDocument": "educationQualification"},
	RequiresApproval:      true,
	MaxUnverifiedAttempts: 3,
}

var VolunteerProfile = Profile{
	Kind:  models.KindVolunteer,
	Scope: regnumber.FieldExecutive,
	RequiredFields: []string{
		"name", "email", "phone", "password", "verificationMethod",
		"guardian", "address", "dob", "gender",
	},
	RequiredDocuments: []string{
		"image", "undertaking", "policeVerification", "educationQualification",
	},
	MaxUnverifiedAttempts: 3,
}

// ProfileFor returns the registration profile of kind. Admins have none.
func ProfileFor(kind models.Kind) (Profile, bool) {
	switch kind {
	case models.KindUser:
		return UserProfile, true
	case models.KindVolunteer:
		return VolunteerProfile, true
	}
	return Profile{}, false
}

// documents returns the names of all documents the submission must carry.
func (p Profile) documents(sub *Submission) []string {
	names := append([]string(nil), p.RequiredDocuments...)
	for _, c := range p.ConditionalDocuments {
		if sub.Get(c.Field) == c.When {
			names = append(names, c.Name)
		}
	}
	return names
}
