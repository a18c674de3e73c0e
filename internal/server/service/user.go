package service

import (
	"strings"

	"github.com/mdouchement/itemtrack/internal/apperror"
	"github.com/mdouchement/itemtrack/internal/database"
	"github.com/mdouchement/itemtrack/internal/model"
	"github.com/mdouchement/itemtrack/internal/password"
	"github.com/mdouchement/itemtrack/internal/server/session"
	"github.com/mdouchement/itemtrack/internal/validation"
	"github.com/pkg/errors"
)

var (
	errMissingSignUpFields = apperror.BadRequest("Name, email, and password are required")
	errMissingSignInFields = apperror.BadRequest("Email and password are required")
	errEmailTaken          = apperror.Conflict("User with this email already exists")
	errAdminRegistration   = apperror.Forbidden("Administrator registration is disabled")
	errInvalidCredentials  = apperror.Unauthorized("Invalid email or password")
)

type (
	// A UserService handles the registration and the authentication of users.
	UserService interface {
		// Register creates a new user.
		Register(params RegisterParams) (*model.User, error)
		// Login checks the credentials and opens a new session.
		Login(params LoginParams) (*model.User, *model.Session, error)
	}

	// RegisterParams are used to register a user.
	RegisterParams struct {
		Params
		validation.SignUpInput
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		validation.SignInInput
	}

	userService struct {
		db         database.Client
		sessions   session.Manager
		allowAdmin bool
	}
)

// NewUser returns a new UserService.
// allowAdmin permits the self-registration of administrators.
func NewUser(db database.Client, sessions session.Manager, allowAdmin bool) UserService {
	return &userService{
		db:         db,
		sessions:   sessions,
		allowAdmin: allowAdmin,
	}
}

func (s *userService) Register(params RegisterParams) (*model.User, error) {
	if blank(params.Name) || blank(params.Email) || params.Password == "" {
		return nil, errMissingSignUpFields
	}

	// Check if the email is free to use.
	// A taken email wins over any other input error.
	u, err := s.db.FindUserByMail(model.NormalizeEmail(params.Email))
	if err != nil && !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}
	if u != nil {
		return nil, errEmailTaken
	}

	input, err := validation.SignUp(params.SignUpInput)
	if err != nil {
		return nil, err
	}

	if input.Role == model.RoleAdmin && !s.allowAdmin {
		return nil, errAdminRegistration
	}

	// Initialize user
	user := model.NewUser()
	user.Name = input.Name
	user.Email = input.Email
	user.Role = input.Role

	user.Password, err = password.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}

	// Persist the model
	if err := s.db.Save(user); err != nil {
		if s.db.IsAlreadyExists(err) {
			// Registered concurrently.
			return nil, errEmailTaken
		}
		return nil, errors.Wrap(err, "could not persist user")
	}

	return user, nil
}

func (s *userService) Login(params LoginParams) (*model.User, *model.Session, error) {
	if blank(params.Email) || params.Password == "" {
		return nil, nil, errMissingSignInFields
	}

	input, err := validation.SignIn(params.SignInInput)
	if err != nil {
		return nil, nil, err
	}

	// Retrieve user
	user, err := s.db.FindUserByMail(input.Email)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, errors.Wrap(err, "could not get user")
	}

	// Verify password
	if err = password.Compare(user.Password, input.Password); err != nil {
		if err == password.ErrMismatch {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, errors.Wrap(err, "could not validate password")
	}

	session, err := s.sessions.Create(user, params.UserAgent)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not create session")
	}

	return user, session, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

