package models

import (
	"errors"
	"fmt"
)

var ErrProfileMismatch = errors.New("role does not match owned profile")

// Account is the role-specific view of a User. Only the three variants below
// implement it, so a student can never carry a company profile and vice versa.
type Account interface {
	Role() Role
	Owner() *User
	isAccount()
}

type StudentAccount struct {
	User    *User
	Profile *StudentProfile
}

type CompanyAccount struct {
	User    *User
	Profile *CompanyProfile
}

type AdminAccount struct {
	User *User
}

func (StudentAccount) Role() Role { return RoleStudent }
func (CompanyAccount) Role() Role { return RoleCompany }
func (AdminAccount) Role() Role   { return RoleAdmin }

func (a StudentAccount) Owner() *User { return a.User }
func (a CompanyAccount) Owner() *User { return a.User }
func (a AdminAccount) Owner() *User   { return a.User }

func (StudentAccount) isAccount() {}
func (CompanyAccount) isAccount() {}
func (AdminAccount) isAccount()   {}

// AccountOf builds the variant for u from its preloaded profiles.
// Admin accounts may keep dormant profiles from an earlier role; they are ignored.
func AccountOf(u *User) (Account, error) {
	if u == nil {
		return nil, errors.New("nil user")
	}
	switch u.Role {
	case RoleStudent:
		if u.StudentProfile == nil || u.CompanyProfile != nil {
			return nil, fmt.Errorf("%w: user %s", ErrProfileMismatch, u.ID)
		}
		return StudentAccount{User: u, Profile: u.StudentProfile}, nil
	case RoleCompany:
		if u.CompanyProfile == nil || u.StudentProfile != nil {
			return nil, fmt.Errorf("%w: user %s", ErrProfileMismatch, u.ID)
		}
		return CompanyAccount{User: u, Profile: u.CompanyProfile}, nil
	case RoleAdmin:
		return AdminAccount{User: u}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", u.Role)
	}
}
