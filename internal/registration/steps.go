package registration

import (
	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/password"
)

type Step string

const (
	StepStudentKind Step = "student_kind"
	StepPersonal    Step = "personal"
	StepPassword    Step = "password"
	StepMaestroForm Step = "maestro_form"
	StepPastorForm  Step = "pastor_form"
)

// StudentKind toggles the enrollment start date.
type StudentKind string

const (
	NewStudent       StudentKind = "new"
	ReturningStudent StudentKind = "returning"
)

func (k StudentKind) Valid() bool {
	return k == NewStudent || k == ReturningStudent
}

// Draft field names, as posted by the form.
const (
	FieldName              = "name"
	FieldBirthDate         = "birthDate"
	FieldEmail             = "email"
	FieldPhone             = "phone"
	FieldCongregation      = "congregation"
	FieldInstrument        = "instrument"
	FieldStartDate         = "startDate"
	FieldPhoto             = "photo"
	FieldChurch            = "church"
	FieldPastorName        = "pastorName"
	FieldSundayServiceTime = "sundayServiceTime"
	FieldPassword          = "password"
	FieldConfirmPassword   = "confirmPassword"
)

var knownFields = map[string]bool{
	FieldName: true, FieldBirthDate: true, FieldEmail: true, FieldPhone: true,
	FieldCongregation: true, FieldInstrument: true, FieldStartDate: true,
	FieldPhoto: true, FieldChurch: true, FieldPastorName: true,
	FieldSundayServiceTime: true, FieldPassword: true, FieldConfirmPassword: true,
}

func secretField(f string) bool {
	return f == FieldPassword || f == FieldConfirmPassword
}

// Steps is the fixed sequence a role walks through. Roles that cannot
// self-register have none.
func Steps(role core.Role) []Step {
	switch role {
	case core.RoleStudent:
		return []Step{StepStudentKind, StepPersonal, StepPassword}
	case core.RoleMaestro:
		return []Step{StepMaestroForm}
	case core.RolePastor:
		return []Step{StepPastorForm}
	}
	return nil
}

func requiredFields(step Step, kind StudentKind) []string {
	switch step {
	case StepPersonal:
		f := []string{FieldName, FieldBirthDate, FieldEmail, FieldPhone, FieldCongregation, FieldInstrument}
		if kind == ReturningStudent {
			f = append(f, FieldStartDate)
		}
		return append(f, FieldPhoto)
	case StepPassword:
		return []string{FieldPassword, FieldConfirmPassword}
	case StepMaestroForm:
		return []string{
			FieldName, FieldBirthDate, FieldChurch, FieldPastorName, FieldSundayServiceTime,
			FieldEmail, FieldPhone, FieldPassword, FieldConfirmPassword,
		}
	case StepPastorForm:
		return []string{FieldName, FieldChurch, FieldEmail, FieldPhone, FieldPassword, FieldConfirmPassword}
	}
	return nil
}

func requires(step Step, kind StudentKind, field string) bool {
	for _, f := range requiredFields(step, kind) {
		if f == field {
			return true
		}
	}
	return false
}

// checkStep returns the required fields left empty and the enumerated
// fields holding a value outside their set.
func checkStep(step Step, kind StudentKind, draft map[string]string) (missing, invalid []string) {
	for _, f := range requiredFields(step, kind) {
		if draft[f] == "" {
			missing = append(missing, f)
		}
	}
	if v := draft[FieldPassword]; len(v) > password.MaxBytes && requires(step, kind, FieldPassword) {
		invalid = append(invalid, FieldPassword)
	}
	switch step {
	case StepPersonal:
		if v := draft[FieldInstrument]; v != "" && !core.KnownInstrument(v) {
			invalid = append(invalid, FieldInstrument)
		}
	case StepMaestroForm:
		if v := draft[FieldSundayServiceTime]; v != "" && !core.ServiceTime(v).Valid() {
			invalid = append(invalid, FieldSundayServiceTime)
		}
	}
	return missing, invalid
}
