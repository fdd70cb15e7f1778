package core

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent  Role = "student"
	RoleMaestro  Role = "maestro"
	RoleDirector Role = "director"
	RolePastor   Role = "pastor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleMaestro, RoleDirector, RolePastor:
		return true
	}
	return false
}

// SelfRegisterable reports whether the role can be picked on the public
// registration form. Directors are created out of band.
func (r Role) SelfRegisterable() bool {
	return r == RoleStudent || r == RoleMaestro || r == RolePastor
}

// ApprovedOnCreate is false only for students, who wait for a maestro or
// director to review them.
func (r Role) ApprovedOnCreate() bool {
	return r != RoleStudent
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	return l == LevelBeginner || l == LevelIntermediate || l == LevelAdvanced
}

type ServiceTime string

const (
	ServiceMorning ServiceTime = "morning"
	ServiceEvening ServiceTime = "evening"
)

func (s ServiceTime) Valid() bool {
	return s == ServiceMorning || s == ServiceEvening
}

type StudentProfile struct {
	Instrument   string `json:"instrument"`
	Congregation string `json:"congregation"`
	StartDate    string `json:"startDate,omitempty"`
	Level        Level  `json:"level,omitempty"`
	TeacherID    string `json:"teacherId,omitempty"`
	ClassID      string `json:"classId,omitempty"`
}

type MaestroProfile struct {
	Church            string      `json:"church"`
	PastorName        string      `json:"pastorName"`
	SundayServiceTime ServiceTime `json:"sundayServiceTime"`
}

// User is the base account shape. At most one profile is set and it must
// belong to Role.
type User struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Role      Role            `json:"role"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	BirthDate string          `json:"birthDate"`
	Photo     string          `json:"photo,omitempty"`
	Church    string          `json:"church,omitempty"`
	Approved  bool            `json:"approved"`
	CreatedAt time.Time       `json:"createdAt"`
	Student   *StudentProfile `json:"student,omitempty"`
	Maestro   *MaestroProfile `json:"maestro,omitempty"`
}

func (u User) Validate() error {
	if !u.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}
	if u.Student != nil && u.Role != RoleStudent {
		return fmt.Errorf("%w: student profile on %s", ErrProfileMismatch, u.Role)
	}
	if u.Maestro != nil && u.Role != RoleMaestro {
		return fmt.Errorf("%w: maestro profile on %s", ErrProfileMismatch, u.Role)
	}
	if u.Maestro != nil && !u.Maestro.SundayServiceTime.Valid() {
		return fmt.Errorf("%w: sunday service time %q", ErrProfileMismatch, u.Maestro.SundayServiceTime)
	}
	return nil
}

// UserRecord is the stored form, never sent to clients.
type UserRecord struct {
	User
	Hash []byte `json:"-"`
}

// NormalizeEmail is the directory key: emails match case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
