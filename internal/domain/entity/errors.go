package entity

import "errors"

// Not-found and access errors shared by repositories, identity providers and
// the use cases built on top of them.
var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrAPIKeyNotFound       = errors.New("api key not found")
	ErrTaskNotFound         = errors.New("ingestion task not found")
	ErrNoOrganizationAccess = errors.New("user has no access to organization")
	ErrUnauthenticated      = errors.New("invalid or expired token")
)
