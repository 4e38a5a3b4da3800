package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

func ValidUserRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

type Name struct {
	FirstName  string `json:"firstName" bson:"firstName"`
	MiddleName string `json:"middleName,omitempty" bson:"middleName,omitempty"`
	LastName   string `json:"lastName" bson:"lastName"`
}

// Full joins the non-empty first and last name, or returns "".
func (n Name) Full() string {
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}

type FreelancerProfile struct {
	JobTitle string  `json:"jobTitle" bson:"jobTitle"`
	Bio      string  `json:"bio" bson:"bio"`
	Rating   float64 `json:"rating" bson:"rating"`
	Earning  float64 `json:"earning" bson:"earning"`
	Projects int     `json:"projects" bson:"projects"`
}

type EmployerProfile struct {
	Rating            float64 `json:"rating" bson:"rating"`
	Spent             float64 `json:"spent" bson:"spent"`
	ProjectsCompleted int     `json:"projectsCompleted" bson:"projectsCompleted"`
}

type User struct {
	Id                primitive.ObjectID `json:"id" bson:"_id"`
	Name              Name               `json:"name" bson:"name"`
	Email             string             `json:"email" bson:"email"`
	Role              UserRole           `json:"role" bson:"role"`
	ImageUrl          string             `json:"imageUrl" bson:"imageUrl"`
	FreelancerProfile FreelancerProfile  `json:"freelancerProfile" bson:"freelancerProfile"`
	EmployerProfile   EmployerProfile    `json:"employerProfile" bson:"employerProfile"`
	RatingCount       int                `json:"ratingCount" bson:"ratingCount"`
	Ratings           []Rating           `json:"ratings" bson:"ratings"`
	LedgerKeys        []string           `json:"-" bson:"ledgerKeys"`
	IsDisabled        bool               `json:"isDisabled" bson:"isDisabled"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// HasLedgerKey reports whether the ledger leg identified by key was applied.
func (u *User) HasLedgerKey(key string) bool {
	for _, k := range u.LedgerKeys {
		if k == key {
			return true
		}
	}
	return false
}

// RatingFor returns the rating author left on the user for job, if any.
func (u *User) RatingFor(job, author primitive.ObjectID) (Rating, bool) {
	for _, r := range u.Ratings {
		if r.Job == job && r.Author == author {
			return r, true
		}
	}
	return Rating{}, false
}

// ProfileUpdate is a partial profile change: nil fields keep their value.
// JobTitle and Bio are merged into the freelancer profile.
type ProfileUpdate struct {
	FirstName  *string
	MiddleName *string
	LastName   *string
	JobTitle   *string
	Bio        *string
}

func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.MiddleName == nil && u.LastName == nil && u.JobTitle == nil && u.Bio == nil
}

// Apply copies the set fields onto user.
func (u ProfileUpdate) Apply(user *User) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&user.Name.FirstName, u.FirstName)
	set(&user.Name.MiddleName, u.MiddleName)
	set(&user.Name.LastName, u.LastName)
	set(&user.FreelancerProfile.JobTitle, u.JobTitle)
	set(&user.FreelancerProfile.Bio, u.Bio)
}

// PublicProfile is the part of a user exposed when joined into other entities.
type PublicProfile struct {
	Id                primitive.ObjectID `json:"id" bson:"_id"`
	Name              Name               `json:"name" bson:"name"`
	Email             string             `json:"email" bson:"email"`
	Role              UserRole           `json:"role" bson:"role"`
	ImageUrl          string             `json:"imageUrl" bson:"imageUrl"`
	FreelancerProfile FreelancerProfile  `json:"freelancerProfile" bson:"freelancerProfile"`
	EmployerProfile   EmployerProfile    `json:"employerProfile" bson:"employerProfile"`
	RatingCount       int                `json:"ratingCount" bson:"ratingCount"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		Id:                u.Id,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		ImageUrl:          u.ImageUrl,
		FreelancerProfile: u.FreelancerProfile,
		EmployerProfile:   u.EmployerProfile,
		RatingCount:       u.RatingCount,
	}
}
