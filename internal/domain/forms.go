// Pharmaceutical form reference data.
//
// Forms are a closed set: user input is resolved against this list at the
// API boundary and stored as the canonical lowercase name. Unknown names are
// rejected there, so the rest of the code can trust the column contents.
package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Form identifies a pharmaceutical form by its canonical lowercase name.
type Form string

// The closed set of supported pharmaceutical forms.
const (
	FormPills         Form = "pills"
	FormCapsules      Form = "capsules"
	FormTablets       Form = "tablets"
	FormGel           Form = "gel"
	FormSyrup         Form = "syrup"
	FormDrops         Form = "drops"
	FormCream         Form = "cream"
	FormOintment      Form = "ointment"
	FormSpray         Form = "spray"
	FormPowder        Form = "powder"
	FormInjection     Form = "injection"
	FormPatches       Form = "patches"
	FormSuppositories Form = "suppositories"
	FormInhaler       Form = "inhaler"
	FormOther         Form = "other"
)

// Forms lists every supported form in display order.
var Forms = []Form{
	FormPills, FormCapsules, FormTablets, FormGel, FormSyrup,
	FormDrops, FormCream, FormOintment, FormSpray, FormPowder,
	FormInjection, FormPatches, FormSuppositories, FormInhaler, FormOther,
}

var formSet = func() map[Form]struct{} {
	m := make(map[Form]struct{}, len(Forms))
	for _, f := range Forms {
		m[f] = struct{}{}
	}
	return m
}()

var titleCaser = cases.Title(language.English)

// ParseForm resolves a raw user-supplied form name case-insensitively against
// the closed set. The second result is false when the name is unknown.
func ParseForm(raw string) (Form, bool) {
	f := Form(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := formSet[f]
	return f, ok
}

// String returns the canonical lowercase name.
func (f Form) String() string { return string(f) }

// Label returns the human-readable display label (e.g. "Pills").
func (f Form) Label() string { return titleCaser.String(string(f)) }
