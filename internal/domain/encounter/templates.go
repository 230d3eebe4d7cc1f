package encounter

import (
	"sort"

	"github.com/careflow/careflow/internal/platform/apperror"
)

// Template is a pre-authored set of note defaults. Applying one is a
// shallow merge: fields the clinician already filled always win.
type Template struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Subjective string      `json:"subjective,omitempty"`
	Objective  string      `json:"objective,omitempty"`
	Assessment string      `json:"assessment,omitempty"`
	Plan       string      `json:"plan,omitempty"`
	Diagnoses  []Diagnosis `json:"diagnoses,omitempty"`
}

var templates = map[string]Template{
	"annual-physical": {
		ID:         "annual-physical",
		Name:       "Annual Physical",
		Subjective: "Patient presents for annual wellness examination. Denies acute complaints.",
		Objective:  "General: well-appearing, no acute distress. HEENT: normocephalic, atraumatic. Lungs: clear to auscultation bilaterally. Heart: regular rate and rhythm, no murmurs.",
		Assessment: "Routine health maintenance examination.",
		Plan:       "Age-appropriate screening labs ordered. Immunizations reviewed and updated. Return in 12 months or sooner as needed.",
		Diagnoses: []Diagnosis{
			{System: "icd-10", Code: "Z00.00", Description: "Encounter for general adult medical examination without abnormal findings", Role: "primary", ClinicalStatus: "active"},
		},
	},
	"uri": {
		ID:         "uri",
		Name:       "Upper Respiratory Infection",
		Subjective: "Patient reports nasal congestion, sore throat and cough. Denies fever, shortness of breath or chest pain.",
		Objective:  "Oropharynx: mild erythema, no exudate. Lungs: clear. Tympanic membranes: intact bilaterally.",
		Assessment: "Acute upper respiratory infection, likely viral.",
		Plan:       "Supportive care: rest, fluids, antipyretics as needed. Return if symptoms worsen or persist beyond 10 days.",
		Diagnoses: []Diagnosis{
			{System: "icd-10", Code: "J06.9", Description: "Acute upper respiratory infection, unspecified", Role: "primary", ClinicalStatus: "active"},
		},
	},
	"hypertension-followup": {
		ID:         "hypertension-followup",
		Name:       "Hypertension Follow-up",
		Subjective: "Patient returns for blood pressure follow-up. Reports medication adherence. Denies chest pain, headache or visual changes.",
		Objective:  "Blood pressure recheck performed. Cardiovascular: regular rate and rhythm. No peripheral edema.",
		Assessment: "Essential hypertension, on treatment.",
		Plan:       "Continue current antihypertensive regimen. Home blood pressure log reviewed. Basic metabolic panel ordered. Follow up in 3 months.",
		Diagnoses: []Diagnosis{
			{System: "icd-10", Code: "I10", Description: "Essential (primary) hypertension", Role: "primary", ClinicalStatus: "active"},
		},
	},
}

// LookupTemplate returns the named template.
func LookupTemplate(id string) (Template, error) {
	t, ok := templates[id]
	if !ok {
		return Template{}, apperror.NotFound("note template %q not found", id)
	}
	return t, nil
}

// ListTemplates returns every template ordered by id.
func ListTemplates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// merge fills empty note fields from the template. Non-empty values the
// clinician already entered are never overwritten; template diagnoses
// are added only when the assessment has none.
func (t Template) merge(s Sections) Sections {
	if s.Subjective == "" {
		s.Subjective = t.Subjective
	}
	if s.Objective == "" {
		s.Objective = t.Objective
	}
	if s.Assessment.Summary == "" {
		s.Assessment.Summary = t.Assessment
	}
	if s.Plan == "" {
		s.Plan = t.Plan
	}
	if len(s.Assessment.Diagnoses) == 0 && len(t.Diagnoses) > 0 {
		s.Assessment.Diagnoses = append([]Diagnosis(nil), t.Diagnoses...)
	}
	return s
}
