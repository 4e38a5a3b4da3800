package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"marketplace/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// New profile request

type NewProfileReq struct {
	FirstName  string          `json:"firstName" validate:"required,max=100"`
	MiddleName string          `json:"middleName" validate:"max=100"`
	LastName   string          `json:"lastName" validate:"required,max=100"`
	Email      string          `json:"email" validate:"required,email,max=254"`
	Role       models.UserRole `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	ImageUrl   string          `json:"imageUrl" validate:"omitempty,url"`
	JobTitle   string          `json:"jobTitle" validate:"max=100"`
	Bio        string          `json:"bio" validate:"max=500"`
}

func ParseNewProfileReq(data []byte) (*NewProfileReq, error) {
	return parseRequest[NewProfileReq](data)
}

// Profile update request, absent fields are left unchanged

type UpdateProfileReq struct {
	FirstName  *string `json:"firstName" validate:"omitnil,min=1,max=100"`
	MiddleName *string `json:"middleName" validate:"omitempty,max=100"`
	LastName   *string `json:"lastName" validate:"omitnil,min=1,max=100"`
	JobTitle   *string `json:"jobTitle" validate:"omitempty,max=100"`
	Bio        *string `json:"bio" validate:"omitempty,max=500"`
}

func ParseUpdateProfileReq(data []byte) (*UpdateProfileReq, error) {
	return parseRequest[UpdateProfileReq](data)
}

// Profile image request

type ProfileImageReq struct {
	ImageUrl string `json:"imageUrl" validate:"omitempty,url"`
}

func ParseProfileImageReq(data []byte) (*ProfileImageReq, error) {
	return parseRequest[ProfileImageReq](data)
}

// New job request

type NewJobReq struct {
	Title       string          `json:"title" validate:"required,max=100"`
	Description string          `json:"description" validate:"required,max=500"`
	Budget      float64         `json:"budget" validate:"gte=0"`
	Currency    models.Currency `json:"currency" validate:"omitempty,oneof=PKR USD"`
}

func ParseNewJobReq(data []byte) (*NewJobReq, error) {
	return parseRequest[NewJobReq](data)
}

// Job status request

type JobStatusReq struct {
	Status models.JobStatus `json:"status" validate:"required,oneof=COMPLETED CANCELED"`
}

func ParseJobStatusReq(data []byte) (*JobStatusReq, error) {
	return parseRequest[JobStatusReq](data)
}

// New bid request

type NewBidReq struct {
	Description string          `json:"description" validate:"required,max=500"`
	Budget      float64         `json:"budget" validate:"gte=0"`
	Currency    models.Currency `json:"currency" validate:"omitempty,oneof=PKR USD"`
}

func ParseNewBidReq(data []byte) (*NewBidReq, error) {
	return parseRequest[NewBidReq](data)
}

// Bid decision request

type BidStatusReq struct {
	Status models.BidStatus `json:"status" validate:"required,oneof=INTERVIEWING ACCEPTED REJECTED"`
}

func ParseBidStatusReq(data []byte) (*BidStatusReq, error) {
	return parseRequest[BidStatusReq](data)
}

// Rating request

type RatingReq struct {
	Role  models.RaterRole `json:"role" validate:"omitempty,oneof=EMPLOYER FREELANCER"`
	Text  string           `json:"text" validate:"max=500"`
	Score *float64         `json:"rating" validate:"required"`
}

func ParseRatingReq(data []byte) (*RatingReq, error) {
	return parseRequest[RatingReq](data)
}

// New asset request

type NewAssetReq struct {
	Title       string          `json:"title" validate:"required,max=100"`
	Description string          `json:"description" validate:"max=500"`
	Price       float64         `json:"price" validate:"gte=0"`
	Currency    models.Currency `json:"currency" validate:"omitempty,oneof=PKR USD"`
	ResourceUrl string          `json:"resourceUrl" validate:"required,url"`
}

func ParseNewAssetReq(data []byte) (*NewAssetReq, error) {
	return parseRequest[NewAssetReq](data)
}

// New chat message request

type NewMessageReq struct {
	Receiver string `json:"userId" validate:"required,hexadecimal,len=24"`
	Text     string `json:"text" validate:"required,max=2000"`
}

func ParseNewMessageReq(data []byte) (*NewMessageReq, error) {
	return parseRequest[NewMessageReq](data)
}

// Service

func parseRequest[T any](data []byte) (*T, error) {
	req := new(T)

	err := json.Unmarshal(data, req)
	if err != nil {
		return nil, err
	}

	if err = validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return req, nil
}

// validationError turns validator output into one readable line.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if len(fe.Param()) > 0 {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s=%s' check", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s' check", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func checkLengthLimit(str, fieldName string, limit int) error {
	if len(str) > limit {
		return fmt.Errorf("field '%s' exceeds length limit: %d / %d", fieldName, len(str), limit)
	}
	return nil
}
