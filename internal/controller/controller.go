package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"marketplace/internal/models"
	"marketplace/internal/query"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SubjectIdHeader   = "X-Subject-Id"
	SubjectRoleHeader = "X-Subject-Role"
)

type Service interface {
	CreateProfile(ctx context.Context, user models.User) (models.User, error)
	GetProfile(ctx context.Context, userId primitive.ObjectID) (models.User, error)
	ListUsers(ctx context.Context, filter query.Filter) (query.Page[models.PublicProfile], error)
	UpdateProfile(ctx context.Context, caller models.Identity, update models.ProfileUpdate) (models.User, error)
	SetProfileImage(ctx context.Context, caller models.Identity, url string) (models.User, error)
	LedgerEntries(ctx context.Context, userId primitive.ObjectID) ([]models.LedgerEntry, error)

	CreateJob(ctx context.Context, caller models.Identity, job models.Job) (models.JobView, error)
	GetJob(ctx context.Context, jobId primitive.ObjectID) (models.JobView, error)
	ListJobs(ctx context.Context, filter query.Filter) (query.Page[models.JobView], error)
	TransitionJob(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, status models.JobStatus) (models.JobView, error)
	SettleJob(ctx context.Context, caller models.Identity, jobId primitive.ObjectID) (models.Settlement, error)

	SubmitBid(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, bid models.Bid) (models.JobView, error)
	DecideBid(ctx context.Context, caller models.Identity, jobId, bidId primitive.ObjectID, status models.BidStatus) (models.JobView, error)
	SubmitRating(ctx context.Context, caller models.Identity, jobId primitive.ObjectID, role models.RaterRole, text string, score float64) (models.JobView, error)

	CreateAsset(ctx context.Context, caller models.Identity, asset models.Asset) (models.Asset, error)
	ListAssets(ctx context.Context, filter query.Filter) (query.Page[models.Asset], error)

	SendMessage(ctx context.Context, caller models.Identity, receiver primitive.ObjectID, text string) (models.ChatMessage, error)
	Messages(ctx context.Context, caller models.Identity, other primitive.ObjectID) ([]models.ChatMessage, error)
	ListConversations(ctx context.Context, caller models.Identity, filter query.Filter) (query.Page[models.Conversation], error)
}

type Controller struct {
	service Service
	log     logrus.FieldLogger
}

func NewController(service Service, log logrus.FieldLogger) *Controller {
	return &Controller{service: service, log: log}
}

// GET /api/ping
func (c *Controller) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

//// Users

// POST /api/users
func (c *Controller) NewProfile(w http.ResponseWriter, r *http.Request) {
	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewProfileReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := c.service.CreateProfile(r.Context(), models.User{
		Name:     models.Name{FirstName: req.FirstName, MiddleName: req.MiddleName, LastName: req.LastName},
		Email:    req.Email,
		Role:     req.Role,
		ImageUrl: req.ImageUrl,
		FreelancerProfile: models.FreelancerProfile{
			JobTitle: req.JobTitle,
			Bio:      req.Bio,
		},
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, user)
}

// GET /api/users
func (c *Controller) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := c.listFilter(r.URL.Query())
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.service.ListUsers(r.Context(), filter)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, page)
}

// GET /api/users/{userId}
func (c *Controller) GetProfile(w http.ResponseWriter, r *http.Request) {
	userId, err := c.pathId(r, "userId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := c.service.GetProfile(r.Context(), userId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, user)
}

// PUT /api/users/me
func (c *Controller) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseUpdateProfileReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := c.service.UpdateProfile(r.Context(), caller, models.ProfileUpdate{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		JobTitle:   req.JobTitle,
		Bio:        req.Bio,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, user)
}

// PUT /api/users/me/image
func (c *Controller) SetProfileImage(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseProfileImageReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := c.service.SetProfileImage(r.Context(), caller, req.ImageUrl)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, user)
}

// GET /api/users/{userId}/ledger
func (c *Controller) UserLedger(w http.ResponseWriter, r *http.Request) {
	userId, err := c.pathId(r, "userId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := c.service.LedgerEntries(r.Context(), userId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, entries)
}

//// Jobs

// POST /api/jobs
func (c *Controller) NewJob(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewJobReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.CreateJob(r.Context(), caller, models.Job{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Currency:    req.Currency,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// GET /api/jobs
func (c *Controller) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter, err := c.listFilter(query)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if filter.Owner, err = c.queryId(query, "owner"); err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Freelancer, err = c.queryId(query, "freelancer"); err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Statuses, err = queryStatuses(query, "status"); err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.ExcludeStatuses, err = queryStatuses(query, "excludeStatus"); err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.service.ListJobs(r.Context(), filter)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, page)
}

// GET /api/jobs/{jobId}
func (c *Controller) GetJob(w http.ResponseWriter, r *http.Request) {
	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.GetJob(r.Context(), jobId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// PUT /api/jobs/{jobId}/status
func (c *Controller) SetJobStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseJobStatusReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.TransitionJob(r.Context(), caller, jobId, req.Status)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// POST /api/jobs/{jobId}/settle
func (c *Controller) SettleJob(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	settlement, err := c.service.SettleJob(r.Context(), caller, jobId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, settlement)
}

//// Bids

// POST /api/jobs/{jobId}/bids
func (c *Controller) NewBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewBidReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.SubmitBid(r.Context(), caller, jobId, models.Bid{
		Description: req.Description,
		Budget:      req.Budget,
		Currency:    req.Currency,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// PUT /api/jobs/{jobId}/bids/{bidId}/status
func (c *Controller) SetBidStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	bidId, err := c.pathId(r, "bidId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseBidStatusReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.DecideBid(r.Context(), caller, jobId, bidId, req.Status)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// POST /api/jobs/{jobId}/ratings
func (c *Controller) NewRating(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	jobId, err := c.pathId(r, "jobId")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseRatingReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.SubmitRating(r.Context(), caller, jobId, req.Role, req.Text, *req.Score)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

//// Assets

// POST /api/assets
func (c *Controller) NewAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewAssetReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := c.service.CreateAsset(r.Context(), caller, models.Asset{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ResourceUrl: req.ResourceUrl,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, asset)
}

// GET /api/assets
func (c *Controller) ListAssets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter, err := c.listFilter(query)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Owner, err = c.queryId(query, "owner"); err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.service.ListAssets(r.Context(), filter)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, page)
}

//// Chats

// POST /api/chats
func (c *Controller) NewMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewMessageReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	receiver, err := primitive.ObjectIDFromHex(req.Receiver)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, "invalid receiver id supplied: "+req.Receiver)
		return
	}

	msg, err := c.service.SendMessage(r.Context(), caller, receiver, req.Text)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, msg)
}

// GET /api/chats
func (c *Controller) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	filter, err := c.listFilter(r.URL.Query())
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.service.ListConversations(r.Context(), caller, filter)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, page)
}

// GET /api/chats/messages
func (c *Controller) Messages(w http.ResponseWriter, r *http.Request) {
	caller, ok := c.identity(w, r)
	if !ok {
		return
	}

	other, err := c.queryId(r.URL.Query(), "user")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if other == nil {
		c.errorResponse(w, http.StatusBadRequest, "empty user supplied")
		return
	}

	msgs, err := c.service.Messages(r.Context(), caller, *other)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, msgs)
}

// Service

type ErrorResponse struct {
	Reason string `json:"reason"`
}

// identity reads the already authenticated caller from request headers and
// answers 401 when it is missing or malformed.
func (c *Controller) identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, err := models.NewIdentity(r.Header.Get(SubjectIdHeader), r.Header.Get(SubjectRoleHeader))
	if err != nil {
		c.errorResponse(w, http.StatusUnauthorized, err.Error())
		return id, false
	}
	return id, true
}

func (c *Controller) pathId(r *http.Request, key string) (primitive.ObjectID, error) {
	str := r.PathValue(key)
	if len(str) == 0 {
		return primitive.NilObjectID, fmt.Errorf("empty %s supplied", key)
	}
	id, err := primitive.ObjectIDFromHex(str)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid %s supplied: %s", key, str)
	}
	return id, nil
}

func (c *Controller) queryId(query url.Values, key string) (*primitive.ObjectID, error) {
	str := query.Get(key)
	if len(str) == 0 {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(str)
	if err != nil {
		return nil, fmt.Errorf("invalid value of '%s' query parameter: %s", key, str)
	}
	return &id, nil
}

func (c *Controller) getQueryInt(query url.Values, key string) (*int, error) {
	strs, ok := query[key]
	if ok && len(strs) > 0 {
		n, err := strconv.Atoi(strs[0])
		if err != nil {
			return nil, fmt.Errorf("invalid value of '%s' query parameter: %s", key, strs[0])
		}
		return &n, nil
	}
	return nil, nil
}

// listFilter reads the paging and search parameters every list shares.
func (c *Controller) listFilter(values url.Values) (query.Filter, error) {
	var (
		filter query.Filter
		err    error
	)

	filter.SearchString = values.Get("search")
	if err = checkLengthLimit(filter.SearchString, "search", 100); err != nil {
		return filter, err
	}
	if filter.Page, err = c.getQueryInt(values, "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = c.getQueryInt(values, "limit"); err != nil {
		return filter, err
	}

	return filter, nil
}

func queryStatuses(query url.Values, key string) ([]models.JobStatus, error) {
	var statuses []models.JobStatus
	for _, str := range query[key] {
		s := models.JobStatus(str)
		if !models.ValidJobStatus(s) {
			return nil, fmt.Errorf("invalid job status supplied: %s", str)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

func (c *Controller) errorResponse(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, err := json.Marshal(ErrorResponse{Reason: text})
	if err != nil {
		c.log.Errorf("controller.Controller.errorResponse: %s", err)
		return
	}

	_, err = w.Write(data)
	if err != nil {
		c.log.Errorf("controller.Controller.errorResponse: %s", err)
		return
	}
}

// specific errors whose own text is safe to show to clients
var reasons = []error{
	models.ErrNoJob, models.ErrNoBid, models.ErrNoUser, models.ErrNoAsset, models.ErrNoMessage,
	models.ErrDuplicateBid, models.ErrAlreadyAssigned, models.ErrAlreadyRated, models.ErrStaleWrite, models.ErrDuplicateEmail,
	models.ErrJobFinalized, models.ErrJobNotOpen, models.ErrJobNotCompleted, models.ErrBidFinalized,
	models.ErrInvalidTransition, models.ErrInvalidPage, models.ErrInvalidRole, models.ErrInvalidCurrency,
	models.ErrInvalidUserRole, models.ErrSelfMessage, models.ErrEmptyUpdate,
}

func reason(err error, fallback string) string {
	for _, r := range reasons {
		if errors.Is(err, r) {
			return r.Error()
		}
	}
	return fallback
}

func (c *Controller) serviceErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.errorResponse(w, http.StatusBadRequest, reason(err, models.ErrValidation.Error()))
	case errors.Is(err, models.ErrForbidden):
		c.errorResponse(w, http.StatusForbidden, "user have no permission for requested action")
	case errors.Is(err, models.ErrNotFound):
		c.errorResponse(w, http.StatusNotFound, reason(err, "requested resource does not exist"))
	case errors.Is(err, models.ErrConflict):
		c.errorResponse(w, http.StatusConflict, reason(err, "request conflicts with the current state"))
	case errors.Is(err, models.ErrStoreUnavailable):
		c.log.Warn("controller: ", err)
		c.errorResponse(w, http.StatusServiceUnavailable, "store is unavailable, try again later")
	default:
		c.log.Error("controller: ", err)
		c.errorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}

func (c *Controller) marshalResponse(w http.ResponseWriter, data any) {
	d, err := json.Marshal(data)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not marhsal response data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(d)
	if err != nil {
		c.log.Errorf("controller.Controller.marshalResponse: %s", err)
		return
	}
}

func (c *Controller) readBody(src io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	src.Close()
	return data, nil
}
