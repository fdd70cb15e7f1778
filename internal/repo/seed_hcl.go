package repo

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"example.com/amadvs/internal/core"
)

// seedFile is the HCL shape of a directory seed:
//
//	user "1" {
//	  name  = "Daniel de Oliveira"
//	  role  = "director"
//	  email = "Dansax2016@gmail.com"
//	}
type seedFile struct {
	Users []seedUser `hcl:"user,block"`
}

type seedUser struct {
	ID                string `hcl:"id,label"`
	Name              string `hcl:"name"`
	Role              string `hcl:"role"`
	Email             string `hcl:"email"`
	Phone             string `hcl:"phone,optional"`
	BirthDate         string `hcl:"birth_date,optional"`
	Church            string `hcl:"church,optional"`
	Password          string `hcl:"password,optional"`
	Approved          *bool  `hcl:"approved,optional"`
	Instrument        string `hcl:"instrument,optional"`
	Congregation      string `hcl:"congregation,optional"`
	PastorName        string `hcl:"pastor_name,optional"`
	SundayServiceTime string `hcl:"sunday_service_time,optional"`
}

func LoadSeedFile(path string) ([]Seed, error) {
	hclFile, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, diags)
	}
	return decodeSeed(path, hclFile)
}

// ParseSeed decodes seed source held in memory.
func ParseSeed(filename string, src []byte) ([]Seed, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", filename, diags)
	}
	return decodeSeed(filename, hclFile)
}

func decodeSeed(filename string, hclFile *hcl.File) ([]Seed, error) {
	var f seedFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", filename, diags)
	}
	return f.seeds(time.Now().UTC())
}

func (f seedFile) seeds(now time.Time) ([]Seed, error) {
	out := make([]Seed, 0, len(f.Users))
	for _, s := range f.Users {
		role := core.Role(s.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("user %q: %w: %q", s.ID, core.ErrInvalidRole, s.Role)
		}
		u := core.User{
			ID:        s.ID,
			Name:      s.Name,
			Role:      role,
			Email:     s.Email,
			Phone:     s.Phone,
			BirthDate: s.BirthDate,
			Church:    s.Church,
			Approved:  role.ApprovedOnCreate(),
			CreatedAt: now,
		}
		if s.Approved != nil {
			u.Approved = *s.Approved
		}
		switch role {
		case core.RoleStudent:
			u.Student = &core.StudentProfile{Instrument: s.Instrument, Congregation: s.Congregation}
		case core.RoleMaestro:
			u.Maestro = &core.MaestroProfile{
				Church:            s.Church,
				PastorName:        s.PastorName,
				SundayServiceTime: core.ServiceTime(s.SundayServiceTime),
			}
		}
		out = append(out, Seed{User: u, Password: s.Password})
	}
	return out, nil
}
