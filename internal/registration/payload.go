package registration

import (
	"fmt"

	"example.com/amadvs/internal/core"
)

type Base struct {
	Name      string
	Email     string
	Phone     string
	BirthDate string
	Photo     string
}

func (b Base) user(role core.Role) core.User {
	return core.User{
		Name:      b.Name,
		Role:      role,
		Email:     b.Email,
		Phone:     b.Phone,
		BirthDate: b.BirthDate,
		Photo:     b.Photo,
	}
}

// Payload is exactly one of StudentPayload, MaestroPayload or PastorPayload.
type Payload interface {
	Role() core.Role
	User() core.User
	payload()
}

type StudentPayload struct {
	Base
	Instrument   string
	Congregation string
	StartDate    string // returning students only
}

func (StudentPayload) Role() core.Role { return core.RoleStudent }
func (StudentPayload) payload()        {}

func (p StudentPayload) User() core.User {
	u := p.Base.user(core.RoleStudent)
	u.Student = &core.StudentProfile{
		Instrument:   p.Instrument,
		Congregation: p.Congregation,
		StartDate:    p.StartDate,
	}
	return u
}

type MaestroPayload struct {
	Base
	Church            string
	PastorName        string
	SundayServiceTime core.ServiceTime
}

func (MaestroPayload) Role() core.Role { return core.RoleMaestro }
func (MaestroPayload) payload()        {}

func (p MaestroPayload) User() core.User {
	u := p.Base.user(core.RoleMaestro)
	u.Church = p.Church
	u.Maestro = &core.MaestroProfile{
		Church:            p.Church,
		PastorName:        p.PastorName,
		SundayServiceTime: p.SundayServiceTime,
	}
	return u
}

// PastorPayload keeps the church on the base record; pastors have no
// profile of their own.
type PastorPayload struct {
	Base
	Church string
}

func (PastorPayload) Role() core.Role { return core.RolePastor }
func (PastorPayload) payload()        {}

func (p PastorPayload) User() core.User {
	u := p.Base.user(core.RolePastor)
	u.Church = p.Church
	return u
}

func BuildPayload(role core.Role, kind StudentKind, draft map[string]string) (Payload, error) {
	base := Base{
		Name:      draft[FieldName],
		Email:     draft[FieldEmail],
		Phone:     draft[FieldPhone],
		BirthDate: draft[FieldBirthDate],
		Photo:     draft[FieldPhoto],
	}
	switch role {
	case core.RoleStudent:
		p := StudentPayload{
			Base:         base,
			Instrument:   draft[FieldInstrument],
			Congregation: draft[FieldCongregation],
		}
		if kind == ReturningStudent {
			p.StartDate = draft[FieldStartDate]
		}
		return p, nil
	case core.RoleMaestro:
		return MaestroPayload{
			Base:              base,
			Church:            draft[FieldChurch],
			PastorName:        draft[FieldPastorName],
			SundayServiceTime: core.ServiceTime(draft[FieldSundayServiceTime]),
		}, nil
	case core.RolePastor:
		return PastorPayload{Base: base, Church: draft[FieldChurch]}, nil
	case core.RoleDirector:
		return nil, core.ErrRoleNotRegisterable
	}
	return nil, fmt.Errorf("%w: %q", core.ErrInvalidRole, role)
}
