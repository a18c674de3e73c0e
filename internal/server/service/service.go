package service

import "github.com/mdouchement/itemtrack/internal/model"

// Params are the basic fields used in requests.
type Params struct {
	UserAgent string
	// Caller is the authenticated user performing the request.
	Caller *model.User
	// Session is the session of the caller, if any.
	Session *model.Session
}
