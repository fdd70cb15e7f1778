package repo

import (
	"time"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/password"
)

// DemoPassword is shared by every demo account. Real accounts registered
// through the site get their own hash.
const DemoPassword = "0000"

type Seed struct {
	User     core.User
	Password string
}

func DemoSeeds() []Seed {
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Seed{
		{
			User: core.User{
				ID:        "1",
				Name:      "Daniel de Oliveira",
				Role:      core.RoleDirector,
				Email:     "Dansax2016@gmail.com",
				Phone:     "11973768373",
				BirthDate: "1980-01-01",
				Approved:  true,
				CreatedAt: created,
			},
			Password: DemoPassword,
		},
		{
			User: core.User{
				ID:        "2",
				Name:      "Jonathas Teles",
				Role:      core.RoleMaestro,
				Email:     "jonathas@example.com",
				Phone:     "11957210280",
				BirthDate: "1985-01-01",
				Church:    "ADVS Central",
				Approved:  true,
				CreatedAt: created,
				Maestro: &core.MaestroProfile{
					Church:            "ADVS Central",
					PastorName:        "Pastor João",
					SundayServiceTime: core.ServiceMorning,
				},
			},
			Password: DemoPassword,
		},
	}
}

func (s Seed) record() (core.UserRecord, error) {
	if err := s.User.Validate(); err != nil {
		return core.UserRecord{}, err
	}
	pw := s.Password
	if pw == "" {
		pw = DemoPassword
	}
	hash, err := password.Hash(pw)
	if err != nil {
		return core.UserRecord{}, err
	}
	return core.UserRecord{User: s.User, Hash: hash}, nil
}
