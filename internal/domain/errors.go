package domain

import "errors"

var (
	// ErrAuth indicates bad credentials or an unreachable auth service
	ErrAuth = errors.New("login failed")
	// ErrUnauthorized indicates a protected action without a token
	ErrUnauthorized = errors.New("please login first")
	// ErrIngestion indicates the upload call failed
	ErrIngestion = errors.New("upload failed")
	// ErrQuery indicates the ask call failed
	ErrQuery = errors.New("query failed")
	// ErrMetrics indicates a metrics fetch failed
	ErrMetrics = errors.New("metrics fetch failed")

	// ErrBusy indicates the workflow is already in flight
	ErrBusy = errors.New("request already in progress")
	// ErrEmptyQuestion indicates a blank question
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNoDocument indicates no file was selected
	ErrNoDocument = errors.New("no document selected")
)
