package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleAlumni  UserRole = "alumni"
	RoleStudent UserRole = "student"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAlumni, RoleStudent:
		return true
	}
	return false
}

// UserProfile holds optional directory information.
type UserProfile struct {
	Bio            string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Phone          string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Location       string   `bson:"location,omitempty" json:"location,omitempty"`
	Avatar         string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	GraduationYear int      `bson:"graduationYear,omitempty" json:"graduationYear,omitempty"`
	Major          string   `bson:"major,omitempty" json:"major,omitempty"`
	Company        string   `bson:"company,omitempty" json:"company,omitempty"`
	JobTitle       string   `bson:"jobTitle,omitempty" json:"jobTitle,omitempty"`
	Skills         []string `bson:"skills,omitempty" json:"skills,omitempty"`
	LinkedIn       string   `bson:"linkedIn,omitempty" json:"linkedIn,omitempty"`
}

// User represents an application user stored in the users collection.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"passwordHash" json:"-"`
	FirstName    string        `bson:"firstName" json:"firstName"`
	LastName     string        `bson:"lastName" json:"lastName"`
	Role         UserRole      `bson:"role" json:"role"`
	IsApproved   bool          `bson:"isApproved" json:"isApproved"`
	IsMentor     bool          `bson:"isMentor" json:"isMentor"`
	Profile      UserProfile   `bson:"profile" json:"profile"`
	ApprovedBy   *bson.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt   *time.Time    `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	LastLogin    *time.Time    `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	Version      int64         `bson:"version" json:"version"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanAuthenticate reports whether the account may log in. Administrators are
// never gated by approval.
func (u *User) CanAuthenticate() bool {
	return u.Role == RoleAdmin || u.IsApproved
}

// UserSummary is the public projection embedded in other responses.
type UserSummary struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Role      UserRole `json:"role"`
	Avatar    string   `json:"avatar,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID.Hex(), FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, Avatar: u.Profile.Avatar}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *UserRole
	IsApproved *bool
	IsMentor   *bool
	Search     string
	Exclude    []bson.ObjectID
	Page       PageRequest
}
