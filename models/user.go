package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User roles. The role field on a user is always one of these values.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleUser       = "user"
	RoleDriver     = "driver"
	RoleMedic      = "medic"
)

// ValidRoles lists every role a user account can hold
var ValidRoles = []string{RoleAdmin, RoleDispatcher, RoleUser, RoleDriver, RoleMedic}

// IsValidRole reports whether role is one of the closed role enum values
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if role == r {
			return true
		}
	}
	return false
}

// User holds the structure for the user collection in mongo
type User struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details UserDetails        `json:"user" bson:"user"`
	Version int32              `json:"__v" bson:"__v"`
}

// UserDetails holds the structure for the inner user structure as defined
// in the user collection in mongo. The password hash and reset-token fields
// never serialize to JSON.
type UserDetails struct {
	Name                 string      `json:"name" bson:"name"`
	Role                 string      `json:"role" bson:"role"`
	Email                string      `json:"email" bson:"email"`
	Password             string      `json:"-" bson:"password"`
	Phone                string      `json:"phone" bson:"phone"`
	SecondaryPhone       string      `json:"secondaryPhone,omitempty" bson:"secondaryPhone,omitempty"`
	ResetPasswordToken   string      `json:"-" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires interface{} `json:"-" bson:"resetPasswordExpires,omitempty"`
	CreatedAt            interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt            interface{} `json:"updatedAt" bson:"updatedAt"`
}

// UserPublic is the subset of user fields joined into driver, medic and
// incident read responses
type UserPublic struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Role  string             `json:"role"`
	Email string             `json:"email"`
	Phone string             `json:"phone"`
}

// Public returns the joinable public fields of a user
func (u User) Public() UserPublic {
	return UserPublic{
		ID:    u.ID,
		Name:  u.Details.Name,
		Role:  u.Details.Role,
		Email: u.Details.Email,
		Phone: u.Details.Phone,
	}
}
