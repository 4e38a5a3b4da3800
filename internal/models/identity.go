package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identity is the already authenticated caller.
type Identity struct {
	SubjectId primitive.ObjectID
	Role      UserRole
}

func NewIdentity(subjectId string, role string) (Identity, error) {
	id, err := primitive.ObjectIDFromHex(subjectId)
	if err != nil {
		return Identity{}, ErrInvalidIdentity
	}
	r := UserRole(role)
	if len(r) == 0 {
		r = RoleUser
	}
	if !ValidUserRole(r) {
		return Identity{}, ErrInvalidIdentity
	}
	return Identity{SubjectId: id, Role: r}, nil
}
